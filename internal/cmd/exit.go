package cmd

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/observability"
)

// ExitWithCode logs msg with the foundry exit code metadata and exits. A nil
// logger falls back to stderr.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if logger == nil || !ok {
		observability.Fatal(exitCode, msg, describeExitError(err))
		return
	}
	logger.Error(msg, exitFields(info, err)...)
	os.Exit(info.Code)
}

// ExitWithCodeStderr exits without a logger, for failures before logging is
// set up and for the top-level command error.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	observability.Fatal(exitCode, msg, describeExitError(err))
}

func exitFields(info foundry.ExitCodeInfo, err error) []zap.Field {
	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	envelope, ok := err.(*errors.ErrorEnvelope)
	if !ok {
		return append(fields, zap.Error(err))
	}
	fields = append(fields,
		zap.String("error_code", envelope.Code),
		zap.String("correlation_id", envelope.CorrelationID))
	if len(envelope.Context) > 0 {
		fields = append(fields, zap.Any("error_context", envelope.Context))
	}
	return append(fields, zap.Error(describeExitError(err)))
}

// describeExitError appends the wrapped cause of an envelope so the operator
// sees what actually failed.
func describeExitError(err error) error {
	envelope, ok := err.(*errors.ErrorEnvelope)
	if !ok || envelope == nil {
		return err
	}
	cause := ""
	switch original := envelope.Original.(type) {
	case error:
		cause = original.Error()
	case string:
		cause = original
	}
	if wrapped, ok := envelope.Context["wrapped_error"].(string); ok && cause == "" {
		cause = wrapped
	}
	if cause == "" {
		return fmt.Errorf("[%s] %s", envelope.Code, envelope.Message)
	}
	return fmt.Errorf("[%s] %s: %s", envelope.Code, envelope.Message, cause)
}
