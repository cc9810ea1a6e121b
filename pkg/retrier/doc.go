// Package retrier wraps a unit of work in a conditional retry loop driven
// by failure signatures found in the unit's own log window.
//
// The controller writes a literal marker line ("[retry] Tries left N")
// before every attempt. When an attempt fails it retrieves the log text
// for the unit, slices off everything before the last marker and tests
// each remaining line against a merged set of named regular expressions.
// Only a match with budget remaining leads to a retry; anything else is
// a final failure, either propagated or suppressed into the outcome.
//
// Basic usage example:
//
//	ctrl := retrier.New(allocator, buildLog)
//
//	cfg := retrier.DefaultConfig()
//	cfg.Name = "integration-tests"
//	cfg.Target = "linux"
//	cfg.Task = func(ctx context.Context, env types.Bindings) error {
//		return runTests(ctx)
//	}
//
//	out, err := ctrl.Run(ctx, cfg)
//
// Custom failure signatures:
//
//	sigs := retrier.NewSignatureSet()
//	sigs.AddString("flaky-dns", `.*no such host.*`)
//	cfg.CustomSignatures = sigs
//
// Custom entries are merged on top of the built-in set (same-name
// entries override in place); set UseBuiltinSignatures to false to use
// them alone.
//
// The execution context (node allocation) and log retrieval are
// collaborator interfaces; the controller never manages threads or
// stores logs itself.
//
// Thread safety: a Controller may run many units concurrently; the only
// shared state is its statistics, which are mutex-protected. Marker
// uniqueness is per retry lineage, which is enough because log windows
// are only ever sliced within one unit's own stream.
package retrier
