// Package cli implements the command-line interface for losca-meetings.
//
// The cli package provides the Cobra-based CLI with commands to crawl agency
// sources, list the registered spiders, and show or initialize the config
// file. Crawl output can be filtered, sorted (by start/title/classification)
// and written as text, JSON, JSON lines or iCalendar. It coordinates the
// config, fetch, spider, crawl, filter and calendar packages.
package cli
