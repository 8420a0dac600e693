// Package daemon triggers full rebuilds from outside the build itself: file
// changes in the source tree (Watcher) and fixed intervals or cron
// expressions (Scheduler). Both feed a Runner, which never runs two builds
// at once and coalesces requests that arrive while a build is running into
// one follow-up build.
package daemon
