// Package testutil contains helper builders used across tests to reduce
// boilerplate when scripting model replies and tools. These helpers are
// intentionally minimal and not intended for production usage.
package testutil
