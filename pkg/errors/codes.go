package errors

// ErrorCode identifies a failure category.  Codes are grouped into families
// by module prefix so operators can aggregate alerts at the family level:
//
//	COMMON_*  cross-cutting conditions
//	STRUCT_*  structural input defects (fatal, never retried)
//	EVAL_*    valuation and win-win evaluation failures
//	OPT_*     roadmap optimization states
//	CACHE_*   memoization layer failures
//	EXPORT_*  graph export failures
//	CONFIG_*  configuration loading failures
type ErrorCode string

// ─────────────────────────────────────────────────────────────────────────────
// COMMON family — cross-cutting
// ─────────────────────────────────────────────────────────────────────────────

const (
	// CodeOK is the zero value reported for a nil error.
	CodeOK ErrorCode = "COMMON_000"

	// CodeUnknown is used when no more specific code can be determined.
	CodeUnknown ErrorCode = "COMMON_001"

	// CodeInternal flags an unexpected internal failure.
	CodeInternal ErrorCode = "COMMON_002"

	// CodeInvalidParam flags a caller-supplied argument that fails validation.
	CodeInvalidParam ErrorCode = "COMMON_003"

	// CodeNotFound flags a lookup miss for an identifier the caller supplied.
	CodeNotFound ErrorCode = "COMMON_004"

	// CodeTimeout flags an operation cancelled by context deadline where no
	// partial result is available.
	CodeTimeout ErrorCode = "COMMON_005"
)

// ─────────────────────────────────────────────────────────────────────────────
// STRUCT family — structural input defects
//
// Structural errors mean the input itself is malformed.  They fail fast at
// construction or invocation time and must never be retried.
// ─────────────────────────────────────────────────────────────────────────────

const (
	// CodeUnknownEntity flags a reference to an entity ID that was never
	// registered in the graph or evaluation input.
	CodeUnknownEntity ErrorCode = "STRUCT_001"

	// CodeCyclicDependency flags a dependency cycle among deal hyperedges.
	CodeCyclicDependency ErrorCode = "STRUCT_002"

	// CodeProbabilityRange flags a probability outside [0, 1].
	CodeProbabilityRange ErrorCode = "STRUCT_003"

	// CodeMalformedHyperedge flags a hyperedge with fewer than two
	// participants, a missing dependency target, or unresolved stakes.
	CodeMalformedHyperedge ErrorCode = "STRUCT_004"

	// CodeInvalidProfile flags an entity profile with out-of-range
	// preferences or an empty identifier.
	CodeInvalidProfile ErrorCode = "STRUCT_005"
)

// ─────────────────────────────────────────────────────────────────────────────
// EVAL family — valuation and win-win evaluation
// ─────────────────────────────────────────────────────────────────────────────

const (
	// CodeEvalFailed flags a valuation that could not be completed.
	CodeEvalFailed ErrorCode = "EVAL_001"

	// CodeRebalanceInfeasible flags a rebalancing request where no transfer
	// plan can reach a win-win outcome within the configured surplus floor.
	CodeRebalanceInfeasible ErrorCode = "EVAL_002"
)

// ─────────────────────────────────────────────────────────────────────────────
// OPT family — roadmap optimization
// ─────────────────────────────────────────────────────────────────────────────

const (
	// CodeOptFailed flags an optimization run that produced no roadmap at
	// all.  Budget expiry does NOT use this code: a budget-bounded run
	// returns its best partial roadmap with the incomplete flag set.
	CodeOptFailed ErrorCode = "OPT_001"

	// CodeOptIncomplete marks a result-state condition, surfaced only in
	// logs and metrics.  It is never returned as an error.
	CodeOptIncomplete ErrorCode = "OPT_002"

	// CodeSimulationFailed flags a Monte Carlo run with invalid parameters.
	CodeSimulationFailed ErrorCode = "OPT_003"
)

// ─────────────────────────────────────────────────────────────────────────────
// CACHE / EXPORT / CONFIG families — infrastructure
// ─────────────────────────────────────────────────────────────────────────────

const (
	// CodeCacheError flags a memoization backend failure.  Callers treat it
	// as a miss and recompute.
	CodeCacheError ErrorCode = "CACHE_001"

	// CodeCacheSerialization flags a value that could not be encoded or
	// decoded by the cache serializer.
	CodeCacheSerialization ErrorCode = "CACHE_002"

	// CodeExportFailed flags a graph export that could not be written to the
	// backing store.
	CodeExportFailed ErrorCode = "EXPORT_001"

	// CodeConfigLoad flags a configuration file or environment that could
	// not be read or parsed.
	CodeConfigLoad ErrorCode = "CONFIG_001"

	// CodeConfigInvalid flags a configuration that parsed but failed
	// semantic validation.
	CodeConfigInvalid ErrorCode = "CONFIG_002"
)

// defaultMessages maps each code to a fallback human-readable message used
// when a caller constructs an error without one.
var defaultMessages = map[ErrorCode]string{
	CodeOK:                  "ok",
	CodeUnknown:             "unknown error",
	CodeInternal:            "internal error",
	CodeInvalidParam:        "invalid parameter",
	CodeNotFound:            "not found",
	CodeTimeout:             "operation timed out",
	CodeUnknownEntity:       "unknown entity",
	CodeCyclicDependency:    "cyclic deal dependency",
	CodeProbabilityRange:    "probability out of [0,1]",
	CodeMalformedHyperedge:  "malformed deal hyperedge",
	CodeInvalidProfile:      "invalid entity profile",
	CodeEvalFailed:          "evaluation failed",
	CodeRebalanceInfeasible: "rebalancing infeasible",
	CodeOptFailed:           "optimization produced no roadmap",
	CodeOptIncomplete:       "optimization budget exhausted",
	CodeSimulationFailed:    "simulation failed",
	CodeCacheError:          "cache backend error",
	CodeCacheSerialization:  "cache serialization error",
	CodeExportFailed:        "graph export failed",
	CodeConfigLoad:          "configuration load failed",
	CodeConfigInvalid:       "configuration invalid",
}

// DefaultMessageForCode returns the fallback message for code, or the
// CodeUnknown message when the code is unregistered.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return defaultMessages[CodeUnknown]
}

// ModuleForCode returns the family prefix of code ("STRUCT", "OPT", ...),
// or "UNKNOWN" for codes that carry no underscore separator.
func ModuleForCode(code ErrorCode) string {
	s := string(code)
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			return s[:i]
		}
	}
	return "UNKNOWN"
}
