// Package websocket pushes dataset notifications to open dashboards.
//
// A Hub owns the set of connected clients and runs a single dispatch loop;
// each Client has a read pump and a write pump. When the watched CSV changes
// the hub broadcasts a dataset:changed message and the dashboard page reloads
// itself.
package websocket
