// Package fetch retrieves raw HTML for venue pages.
//
// Two strategies are provided: a plain HTTP GET for server-rendered pages
// and a headless Chrome session (chromedp) for listings rendered client side.
// Both implement Fetcher. Callers own the Fetcher and must Close it on every
// exit path; Close releases the browser process when one was started.
package fetch
