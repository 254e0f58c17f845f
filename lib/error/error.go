/*package error contains simple funcitons for reporting vizgrid errors which
end the program. Errors are written through the global zap logger, so the
command line tool should install its logger with zap.ReplaceGlobals before
calling them.
*/
package error

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// exit is replaced in tests.
var exit = os.Exit

// External reports an error and kills the program. It should be used when an
// error is something a user could reasonbly be expected to fix through
// changes in configuration/data/environement. It has the same signature as
// the standard fmt.*printf() functions.
func External(format string, a ...interface{}) {
	zap.L().Error("vizgrid exited early with the following error:",
		zap.String("error", fmt.Sprintf(format, a...)))
	_ = zap.L().Sync()
	exit(1)
}

// Internal reports an error along with a stack trace and kills the program.
// It should be used when the error requires a code dive to fix. It has the
// same signature as the standard fmt.*printf() functions.
func Internal(format string, a ...interface{}) {
	zap.L().Error("vizgrid exited early with the following internal error:",
		zap.String("error", fmt.Sprintf(format, a...)),
		zap.Stack("stack"))
	_ = zap.L().Sync()
	exit(2)
}
