// Package dispatch routes commands to the loaded engine module and correlates
// asynchronous completions back to their callers.
//
// A Core owns one Module and a pending command table:
//
//	core := dispatch.New()
//	core.Attach(module) // done by the loader, once
//
//	resp, err := core.DispatchSync(dispatch.ConnectCommand(dispatch.ConnectWithURI), uri)
//
//	fut, err := core.DispatchAsync(dispatch.NewCommand(dispatch.Count, clientID), payload)
//	data, err := fut.Wait(ctx)
//
// Every async command gets the next id from an atomic counter starting at
// zero. The engine reports results through the completion handler, which
// calls ResolveEnvelope with a {"command_id", "data"} envelope. Completions
// may arrive in any order; each one is delivered to the Future holding its id
// and the table entry is removed. Completions with no matching entry are
// dropped.
//
// There is no cancellation or timeout. A context passed to Future.Wait only
// bounds the caller's wait; the entry stays until the engine answers.
package dispatch
