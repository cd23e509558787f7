// Package cli provides the interactive catalog command-line client.
//
// The REPL is a thin consumer of services.ProductService: every read goes
// through the query cache and every write declares its cache effects in the
// service. Commands:
//
//   - help, exit | quit
//   - login, logout, whoami
//   - tenant [url]        show or switch the app location (and so the tenant)
//   - list [key=value...] page through products; the filter is remembered
//   - show <id>, categories
//   - add, edit <id>, price <id> <value>, delete <id>   (PRODUCT_ADMIN only)
//   - stats               request and cache counters
//
// App.Run starts the REPL and blocks until the user exits.
package cli
