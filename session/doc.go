// Package session implements the session lifecycle: persisted records with
// sliding-window expiration, pluggable stores (MongoDB, Redis, in-memory),
// and a manager that resolves, commits, and ends sessions. Expired records
// are cleaned up lazily on access; only the holder of a session's cookie can
// ever observe it.
package session
