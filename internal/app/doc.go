// Package app wires the dashboard together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, an optional YAML file and CASEPULSE_ env vars
//	2. Initialize logging and OpenTelemetry
//	3. Create the dataset cache, websocket hub, report and health services
//	4. Attach the dataset watcher to the cache and hub
//	5. Set up HTTP handlers and middleware
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run(ctx)
//
// Run blocks until ctx is cancelled, then shuts down the HTTP server,
// disconnects websocket clients and flushes telemetry. The app never calls
// os.Exit; the main function controls the exit process.
package app
