// Package extract locates candidate event blocks in a parsed HTML document.
//
// Extraction is driven by an ordered list of Rules. Each rule names a block
// selector and per-field sub-selectors; the first rule whose block selector
// matches at least one element is used for the whole page. When no rule
// matches, a text heuristic scans leaf blocks for a domain keyword next to a
// date-shaped substring.
package extract
