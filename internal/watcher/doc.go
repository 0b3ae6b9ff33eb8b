// Package watcher is C7, the optional dev-mode filesystem watcher: it
// restarts a stdio upstream's child process whenever one of its configured
// watch paths changes, debouncing back-to-back events so a burst of file
// writes triggers one restart instead of many.
package watcher
