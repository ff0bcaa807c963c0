// Package harness validates a model-serving configuration pipeline
// against a repository of on-disk model directories and golden text
// outputs.
//
// For each model directory the harness normalizes the raw configuration
// (optionally autofilling unspecified fields from the model's artifacts),
// validates it, runs a bundle initializer to exercise the load path, and
// compares the configuration's textual dump against the directory's
// "expected*" golden files.
//
// Two entry points exist: Walker.ValidateOne runs every model under one
// repository path, and Walker.ValidateAll runs the two canonical fixture
// postures (explicit config with a forced platform, and full autofill).
// Format-specific suites supply their own bundle.Initializer and platform
// string.
//
// Failures come in two tiers. A model whose pipeline or golden comparison
// fails is recorded and the walk continues; a filesystem or fixture-setup
// error (unlistable repository, unparsable config during a platform
// rewrite) aborts the whole run, because partial results are meaningless
// without a correctly prepared fixture tree.
package harness
