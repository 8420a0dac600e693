// Package errors provides the classified error taxonomy used across SiteBuilder.
//
// Every failure that aborts a build is a ClassifiedError carrying one of the
// categories below, so the CLI can pick an exit code and the build service can
// label metrics and events without string matching.
//
//   - CategoryConfig: malformed metadata block or undecodable structured data
//   - CategoryNaming: a post filename that does not match YYYY-MM-DD-slug.ext
//   - CategoryFileSystem: read, write or mkdir failures
//   - CategoryTemplate: template parse or evaluation failures
//
// Example usage:
//
//	err := errors.NamingError("post filename must be YYYY-MM-DD-slug.ext").
//		WithContext("path", path).
//		WithCause(ErrInvalidFilename).
//		Build()
package errors
