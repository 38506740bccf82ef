package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

const fatalScenarioEnv = "THREADRUNNER_FATAL_SCENARIO"

func spawnQuietThread(name string) *Thread {
	cfg := DefaultThreadConfig()
	cfg.Name = name
	cfg.Logger = NewNoOpLogger()
	th, err := SpawnWithConfig(cfg)
	if err != nil {
		panic(err)
	}
	return th
}

func ownedValue(owner *Thread) *Tagged[int] {
	v, err := Call(owner, func(ctx context.Context) *Tagged[int] {
		return NewTagged(ctx, 7)
	})
	if err != nil {
		panic(err)
	}
	return v
}

// Each scenario must terminate the process. Returning from it is a failure.
var fatalScenarios = map[string]func(){
	"get-on-other-thread": func() {
		v := ownedValue(spawnQuietThread("a"))
		_, err := Call(spawnQuietThread("b"), func(ctx context.Context) int { return v.Get(ctx) })
		fmt.Println("returned:", err)
	},
	"set-on-other-thread": func() {
		v := ownedValue(spawnQuietThread("a"))
		err := spawnQuietThread("b").Run(func(ctx context.Context) error {
			v.Set(ctx, 1)
			return nil
		})
		fmt.Println("returned:", err)
	},
	"release-on-other-thread": func() {
		v := ownedValue(spawnQuietThread("a"))
		err := spawnQuietThread("b").Release(v)
		fmt.Println("returned:", err)
	},
	"ensure-on-other-thread": func() {
		tagA := spawnQuietThread("a").Tag()
		err := spawnQuietThread("b").Run(func(ctx context.Context) error {
			tagA.EnsureOnThread(ctx)
			return nil
		})
		fmt.Println("returned:", err)
	},
	"new-tagged-without-task-context": func() {
		err := spawnQuietThread("a").Run(func(ctx context.Context) error {
			NewTagged(context.Background(), 1)
			return nil
		})
		fmt.Println("returned:", err)
	},
	"prelude-on-other-thread": func() {
		v := ownedValue(spawnQuietThread("a"))
		cfg := DefaultThreadConfig()
		cfg.Logger = NewNoOpLogger()
		cfg.Prelude = func(ctx context.Context) { _ = v.Get(ctx) }
		th, err := SpawnWithConfig(cfg)
		if err != nil {
			panic(err)
		}
		<-th.Done()
		fmt.Println("returned:", th.Join())
	},
}

// TestTagViolation_AbortsProcess verifies thread affinity violations inside a
// worker task are never turned into task errors
// Given: a Tagged value or Tag owned by one thread
// When: a task on another thread (or without a task context) touches it
// Then: the process terminates with the mismatch instead of returning
func TestTagViolation_AbortsProcess(t *testing.T) {
	if name := os.Getenv(fatalScenarioEnv); name != "" {
		fatalScenarios[name]()
		fmt.Println("process survived")
		os.Exit(0)
	}

	for name := range fatalScenarios {
		t.Run(name, func(t *testing.T) {
			// Arrange
			cmd := exec.Command(os.Args[0], "-test.run=^TestTagViolation_AbortsProcess$")
			cmd.Env = append(os.Environ(), fatalScenarioEnv+"="+name)
			var out bytes.Buffer
			cmd.Stdout = &out
			cmd.Stderr = &out

			// Act
			err := cmd.Run()

			// Assert
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				t.Fatalf("child err = %v, want non-zero exit; output:\n%s", err, out.String())
			}
			output := out.String()
			if strings.Contains(output, "process survived") || strings.Contains(output, "returned:") {
				t.Fatalf("violation was reported as a value; output:\n%s", output)
			}
			if !strings.Contains(output, "cannot operate on tagged element") &&
				!strings.Contains(output, ErrNotOnTaggedThread.Error()) {
				t.Errorf("output does not name the violation:\n%s", output)
			}
		})
	}
}

func TestIsTagViolation(t *testing.T) {
	tests := []struct {
		name string
		rec  any
		want bool
	}{
		{"mismatch", &ThreadMismatchError{}, true},
		{"wrapped mismatch", fmt.Errorf("wrapped: %w", &ThreadMismatchError{}), true},
		{"not on tagged thread", ErrNotOnTaggedThread, true},
		{"released", ErrTaggedReleased, false},
		{"string", "boom", false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTagViolation(tt.rec); got != tt.want {
				t.Errorf("isTagViolation(%v) = %v, want %v", tt.rec, got, tt.want)
			}
		})
	}
}
