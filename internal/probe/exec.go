package probe

import (
	"context"
	"os"
	"os/exec"
)

// Runner executes a shell command and returns its combined output.
// Implemented by the local executor below and by remote.Target.
type Runner interface {
	Run(ctx context.Context, cmd string) ([]byte, error)
}

// FileReader reads a file from the benchmarked host. Implemented locally
// via os.ReadFile and remotely via SFTP, which keeps /proc-based probes
// identical on both paths.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// Local runs commands and reads files on the machine powerbench runs on.
type Local struct{}

func (Local) Run(ctx context.Context, cmd string) ([]byte, error) {
	return exec.CommandContext(ctx, "sh", "-c", cmd).CombinedOutput()
}

func (Local) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}
