// Package access provides the client-side authorization core for
// organization-membership applications: session persistence, an external
// redirect-based identity provider boundary, an auth state machine, and a
// pure access-guard decision function.
//
// Session lifecycle:
//   - Authenticator owns the {unauthenticated, loading, authenticated, error}
//     state machine. Init restores and verifies persisted sessions, BeginLogin
//     hands out the provider redirect, Logout always clears local state even
//     when the provider is unreachable. Transitions are serialized.
//   - Store implementations (FileStore, MemoryStore) persist exactly one
//     Identity and one Credential; malformed payloads restore as absent.
//
// Authorization:
//   - OrgRole and SystemRole are closed enums with a total order defined once;
//     comparisons use "at least" semantics.
//   - Decide combines the auth state with a RoleView snapshot (see the
//     permission package) into an {allow, redirect, fallback, pending}
//     decision for a requested capability.
//
// Activity sinks:
//   - ActivitySink receives login, logout, restore, and role refresh events
//     best-effort, so audit forwarding never blocks authentication.
package access
