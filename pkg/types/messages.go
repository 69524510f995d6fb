package types

// Client -> Server
// SelectRole (role selection window only, first pick sticks):
//   role: "beater" | "goalkeeper"
//
// SubmitChoice (once per role per turn):
//   role: "beater" | "goalkeeper"   // must be the role the sender holds
//   horizontal: "left" | "middle" | "right"
//   vertical: "top" | "middle" | "bottom"
//   precision: "perfect" | "medium" | "miss"   // beater only, defaults to medium
//
// StartMatch: {}   // host only, when AUTO_START is off
//
// RequestRematch: {}   // after MatchEnded; both peers must ask

// Server -> Client
// Welcome:
//   peer_id: string
//
// Update:
//   version: number   // strictly increasing per room
//   state: Snapshot   // see snapshot.go
//   events: Event[]   // named changes since the previous version
//
// Error:
//   error: string   // the rejected command had no effect
