// Package roster implements the guided registration dialogue: the closed
// set of conversation states, the text transition table, button payload
// dispatch, and the commit paths that write or delete permanent records.
//
// The Engine is transport agnostic. It receives an identity plus raw text or
// raw callback data and returns a Reply describing what to render.
package roster
