// Package cli provides the interactive sessionkeeper command-line client.
//
// It wires configuration, the credential store and the API client, then runs
// a REPL. Session notices are printed to the terminal and navigation targets
// are reported as "-> <url>" lines, so forced logouts, billing prompts and
// overload messages are visible while exercising a server.
//
// Commands:
//   - login / logout / status
//   - get [public|auth|paid] <path>: GET a JSON resource at a tier
//   - ping: the public health route
//   - health [service]: gRPC health check through the token interceptor
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
