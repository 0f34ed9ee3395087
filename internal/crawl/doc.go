// Package crawl runs spiders on a bounded worker pool and normalizes their
// candidates into meetings. Results keep the order spiders were given in.
package crawl
