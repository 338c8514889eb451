// Package sentiment classifies free text as POSITIVE, NEUTRAL or NEGATIVE.
//
// Two classifiers exist: a keyword heuristic whose scores are drawn from a
// fixed range per label using an injected random source, and a Hugging Face
// inference client that degrades to a reduced keyword rule set whenever the
// remote call fails. A Selector chooses between them per user from the
// process environment and the user's stored settings.
package sentiment
