// Package errors declares the error classes raised by varcall.
package errors

import (
	stderrors "errors"

	"github.com/pingcap/errors"
)

// config errors: fatal before any job graph is built
var (
	ErrMissingFlag = errors.Normalize(
		"required flag %s not set",
		errors.RFCCodeText("VC:ErrMissingFlag"),
	)
	ErrConfigRead = errors.Normalize(
		"failed to read config file %s",
		errors.RFCCodeText("VC:ErrConfigRead"),
	)
	ErrConfigInvalid = errors.Normalize(
		"config %s failed validation",
		errors.RFCCodeText("VC:ErrConfigInvalid"),
	)
	ErrUnsupportedReferenceBuild = errors.Normalize(
		"unsupported reference build %q, expected one of GRCh37, hg19, hg38, GRCh38",
		errors.RFCCodeText("VC:ErrUnsupportedReferenceBuild"),
	)
	ErrUnsupportedToolVersion = errors.Normalize(
		"unsupported %s version %q",
		errors.RFCCodeText("VC:ErrUnsupportedToolVersion"),
	)
	ErrManifestInvalid = errors.Normalize(
		"sample manifest %s is invalid",
		errors.RFCCodeText("VC:ErrManifestInvalid"),
	)
	ErrMissingParameter = errors.Normalize(
		"%s: missing required parameter %s",
		errors.RFCCodeText("VC:ErrMissingParameter"),
	)
	ErrMissingNormal = errors.Normalize(
		"patient %s has no normal sample, required by pipeline %s",
		errors.RFCCodeText("VC:ErrMissingNormal"),
	)
	ErrUnknownPipeline = errors.Normalize(
		"unknown pipeline %s",
		errors.RFCCodeText("VC:ErrUnknownPipeline"),
	)
	ErrUnknownBackend = errors.Normalize(
		"unknown scheduler backend %s",
		errors.RFCCodeText("VC:ErrUnknownBackend"),
	)
)

// filesystem errors
var (
	ErrLogDirCreate = errors.Normalize(
		"cannot create log directory %s",
		errors.RFCCodeText("VC:ErrLogDirCreate"),
	)
	ErrLogFileOpen = errors.Normalize(
		"cannot open log file %s",
		errors.RFCCodeText("VC:ErrLogFileOpen"),
	)
	ErrMetricsPlaceholder = errors.Normalize(
		"cannot create metrics placeholder %s",
		errors.RFCCodeText("VC:ErrMetricsPlaceholder"),
	)
	ErrRunIndexExhausted = errors.Normalize(
		"no free run index in %s after %d attempts",
		errors.RFCCodeText("VC:ErrRunIndexExhausted"),
	)
	ErrScriptWrite = errors.Normalize(
		"cannot write job script %s",
		errors.RFCCodeText("VC:ErrScriptWrite"),
	)
	ErrPlanWrite = errors.Normalize(
		"cannot write run plan %s",
		errors.RFCCodeText("VC:ErrPlanWrite"),
	)
)

// scheduler errors
var (
	ErrSchedulerSubmit = errors.Normalize(
		"submission of %s failed",
		errors.RFCCodeText("VC:ErrSchedulerSubmit"),
	)
	ErrPollTransient = errors.Normalize(
		"transient status query failure for job %s",
		errors.RFCCodeText("VC:ErrPollTransient"),
	)
	ErrPollFailed = errors.Normalize(
		"status query for job %s failed",
		errors.RFCCodeText("VC:ErrPollFailed"),
	)
	ErrPollExhausted = errors.Normalize(
		"gave up waiting for job %s after %d consecutive scheduler failures",
		errors.RFCCodeText("VC:ErrPollExhausted"),
	)
	ErrStageFailed = errors.Normalize(
		"job %s finished in state %s",
		errors.RFCCodeText("VC:ErrStageFailed"),
	)
	ErrCyclicPlan = errors.Normalize(
		"cycle detected in run plan",
		errors.RFCCodeText("VC:ErrCyclicPlan"),
	)
)

// WrapError wraps err into rfcError, formatting the class message with args.
// It returns nil when err is nil.
func WrapError(rfcError *errors.Error, err error, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return rfcError.Wrap(err).GenWithStackByArgs(args...)
}

// Is reports whether any error in err's chain belongs to the class rfcError.
func Is(err error, rfcError *errors.Error) bool {
	return stderrors.Is(err, rfcError)
}

// IsTransientPoll reports whether err is a recoverable status query failure.
func IsTransientPoll(err error) bool {
	return Is(err, ErrPollTransient)
}
