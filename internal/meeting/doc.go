// Package meeting provides the canonical meeting record shared by every spider.
//
// Extractors produce Candidates from raw source documents. A Normalizer turns each
// Candidate into a finalized Meeting, deriving its ID from the source name, start
// time and title, and its Status from the start time, the evaluation instant and
// any cancellation markers. Candidates without a usable start time are dropped
// with a warning rather than failing the whole document.
package meeting
