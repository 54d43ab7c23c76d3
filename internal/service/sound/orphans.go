package sound

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// initPID is the process every orphan is re-parented to on Unix systems.
const initPID = 1

// KillOrphans terminates processes running the player executable whose parent
// has died, which is what a crashed monitor leaves behind while an alarm loops.
// It returns the number of killed processes.
func KillOrphans(command string) (int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	var (
		name          = filepath.Base(Executable(command))
		thisProcessID = os.Getpid()
		killed        int
	)

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.PPid() != initPID || process.Executable() != name {
			continue
		}

		runningProcess, err := os.FindProcess(process.Pid())
		if err != nil {
			return killed, fmt.Errorf("find process %d: %w", process.Pid(), err)
		}

		if err = runningProcess.Kill(); err != nil {
			return killed, fmt.Errorf("kill process %d: %w", process.Pid(), err)
		}

		killed++
	}

	return killed, nil
}
