// Package markdown converts Markdown and Markdown Extra documents to HTML.
//
// A Parser is built once from Options and can then be shared between
// goroutines. Each call to Convert runs the document, block and span
// stages of its dialect against private state, so no reference, footnote
// or abbreviation leaks from one conversion into the next.
package markdown
