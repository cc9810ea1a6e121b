// Package matrix expands named axes into the cartesian product of stage
// combinations and fans them out concurrently.
//
// Each combination gets a deterministic identifier built from its
// "name=value" pairs and an environment carrying the bound axis values,
// MATRIX_STAGE_VARS, MATRIX_STAGE_NAME and any extra variables. The
// action body receives that environment explicitly; nothing is bound
// through ambient state.
//
// Basic usage example:
//
//	axes := matrix.Axes{
//		{Name: "PLATFORM", Values: []string{"linux", "mac", "windows"}},
//		{Name: "BROWSER", Values: []string{"chrome", "firefox", "safari"}},
//	}
//
//	_, err := matrix.Run(ctx, axes, func(ctx context.Context, env types.Bindings) error {
//		return buildAndTest(ctx, env["PLATFORM"], env["BROWSER"])
//	}, matrix.Options{FailFast: true})
//
// The nine stages above get identifiers like "PLATFORM=linux,
// BROWSER=chrome" and stage names like "linux_chrome".
//
// Set Options.ReturnOnly to obtain the stage set without executing it,
// for callers that compose their own fan-out. StagesAll merges several
// axis sets into one flat set; RunGroups does the same for fully
// independent group configurations and executes the merged set once
// under a uniform fail-fast policy (enabled when any group asks for it).
// On identifier collision during a merge the later entry wins, keeping
// the earlier entry's position.
package matrix
