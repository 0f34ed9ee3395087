// Package fetch retrieves raw source documents for the spiders.
//
// A Client applies, in order: the response cache (GET only), the robots.txt
// check, a per-host rate limit plus any per-request download delay, and
// exponential retry on transport errors, 429 and 5xx responses. Bodies are
// decoded to UTF-8 according to their declared or sniffed charset.
package fetch
