// Package logs reads the daemon's log files for the CLI.
//
// Last returns the final lines of a log with bounded memory. Follow streams
// lines appended afterwards, waking on fsnotify events for the log directory
// so a new daemon run that repoints filerelayd.log is picked up. Both accept a
// match string so an operator can narrow output to one transfer.
package logs
