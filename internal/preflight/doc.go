// Package preflight provides readiness checks for the directories and peers
// filerelay depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failure before it
//     begins watching, so a misconfigured route is visible immediately.
//   - The CLI "filerelay preflight" command renders the same results as a
//     table and exits non-zero when any check fails.
//
// Directories that do not exist yet pass when their nearest existing parent is
// writable, since the dispatcher and receiver create them on demand.
package preflight
