// Package store persists finished team runs.
//
// Every backend writes the same Record: the run summary plus the execution
// log of each agent turn. JSONStore writes one file per run, SQLiteStore
// keeps runs in a single database file and MemoryStore keeps them in the
// process. All of them satisfy team.Store.
package store
