// Package fitting decides, for one cue at a time, how its synthesized speech
// is made to fit the time available to it.
//
// An Engine runs a small state machine per cue:
//
//	PRE_FIT            estimate the spoken duration cheaply and shorten the
//	                   text while the estimate overflows (skipped without an
//	                   Estimator)
//	AUTHORITATIVE_FIT  synthesize; accept when the clip fits, time-stretch
//	                   when the speed ratio reaches the threshold, otherwise
//	                   shorten more aggressively and synthesize again
//	FORCED_FIT         the retry budget is spent or shortening failed:
//	                   stretch regardless of the threshold and warn
//	DONE               a Result with the placement decision
//
// Every loop has a fixed attempt budget of retries+1, so Fit always
// terminates. Only a synthesis failure is returned as an error; shortening,
// estimation and stretching failures degrade the result and are recorded in
// Result.Warnings.
//
// Capabilities are supplied as interfaces. A nil capability is simply not
// used: no Estimator skips PRE_FIT, no Shortener goes straight to FORCED_FIT
// below the threshold, no Synthesizer yields a text-only Result.
package fitting
