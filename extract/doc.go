// Package extract converts heterogeneous sources (web pages, YouTube
// videos, uploaded documents) into plain text for distillation.
//
// The Router dispatches an item to the strategy chain matching its source
// kind. Chains try successive techniques until one yields text above a
// minimum threshold. Web and file extraction never fail: when every
// strategy comes up short they return a diagnostic placeholder describing
// the failure, so the pipeline can still complete and show the user why
// content was insufficient. YouTube transcript extraction is the one
// exception: a summary without a transcript has no value, so a missing
// transcript propagates as a fatal error.
package extract
