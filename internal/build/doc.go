// Package build runs one complete site build: read, generate and deploy.
//
// All execution paths (the build command, the watcher, the scheduler and
// tests) go through BuildService so every build is timed, recorded and
// announced the same way.
package build
