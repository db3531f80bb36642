package kernel

// Signal numbers recognized by kill()/signal()/sigaction() (spec.md §4.6's
// syscall table names signal/sigaction/sigprocmask/sigsuspend).
type Signal int

const (
	SIGHUP Signal = iota + 1
	SIGINT
	SIGQUIT
	SIGILL
	SIGTRAP
	SIGABRT
	SIGBUS
	SIGFPE
	SIGKILL
	SIGUSR1
	SIGSEGV
	SIGUSR2
	SIGPIPE
	SIGALRM
	SIGTERM
	SIGCHLD
	SIGCONT
	SIGSTOP
)

// DefaultFatal reports whether s terminates the task when no handler has
// been installed via sigaction — SIGCHLD/SIGCONT/SIGSTOP/SIGUSR1/SIGUSR2
// are recorded as pending but otherwise inert by default.
func (s Signal) DefaultFatal() bool {
	switch s {
	case SIGCHLD, SIGCONT, SIGSTOP, SIGUSR1, SIGUSR2:
		return false
	default:
		return true
	}
}

// Kill delivers signal to the task identified by pid, per spec.md §4.4's
// kill() contract: SIGKILL terminates immediately, everything else is
// recorded as pending and honored at the next syscall boundary. Permission:
// a caller may always signal itself or a descendant; signalling outside its
// own subtree requires uid 0.
func (k *Kernel) Kill(caller *Task, pid uint64, sig Signal) error {
	k.mu.Lock()
	target, ok := k.tasks[pid]
	k.mu.Unlock()
	if !ok {
		return ErrNoSuchProcess
	}
	if sig == 0 {
		// kill(pid, 0): existence/permission probe only, no delivery.
		if !k.canSignal(caller, target) {
			return ErrPermissionDenied
		}
		return nil
	}
	if !k.canSignal(caller, target) {
		return ErrPermissionDenied
	}

	if sig == SIGKILL {
		k.terminate(target, -int(SIGKILL))
		return nil
	}

	target.raiseSignal(sig)
	if sig == SIGTERM {
		// Wake the target if it is blocked/sleeping so the pending
		// signal is observed at the next syscall boundary rather than
		// waiting out a sleep that may never end.
		k.wake(target)
	}
	return nil
}

// canSignal implements spec.md §4.4's permission rule using
// moby/sys/capability as the audit layer described in SPEC_FULL.md: the
// simulated uid==0 check is the actual authorization decision (this kernel
// has no per-task host process to hold real Linux capabilities), and the
// host's own CAP_KILL bit is consulted only to decide whether the
// delivery is additionally logged as privileged, matching the pattern of
// auditing a privileged action beyond just authorizing it.
func (k *Kernel) canSignal(caller, target *Task) bool {
	if caller == nil || caller.pid == target.pid {
		return true
	}
	if k.isDescendant(target.pid, caller.pid) {
		return true
	}
	if caller.uid != 0 {
		return false
	}
	k.log.WithFields(map[string]interface{}{
		"caller": caller.pid, "target": target.pid, "host_cap_kill": hasKillCapability(),
	}).Debug("privileged cross-tree signal")
	return true
}

func (k *Kernel) isDescendant(pid, ancestor uint64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	for {
		t, ok := k.tasks[pid]
		if !ok || t.ppid == 0 {
			return false
		}
		if t.ppid == ancestor {
			return true
		}
		pid = t.ppid
	}
}
