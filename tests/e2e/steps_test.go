package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/openneuropet/ecat2nii/internal/ecat/ecattest"
)

// binaryPath holds the path to the compiled binary (set once in TestMain)
var binaryPath string

// testContext holds state for a single scenario
type testContext struct {
	tmpDir   string
	exitCode int
	output   string
}

// buildBinary compiles the ecat2nii binary once
func buildBinary() (string, error) {
	tmpFile, err := os.CreateTemp("", "ecat2nii-test-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpFile.Close()

	// Get the directory of this test file to find the project root
	_, thisFile, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")

	cmd := exec.Command("go", "build", "-o", tmpFile.Name(), "./cmd/ecat2nii")
	cmd.Dir = projectRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build failed: %w\n%s", err, stderr.String())
	}

	return tmpFile.Name(), nil
}

// TestMain compiles the binary once before running all tests
func TestMain(m *testing.M) {
	var err error
	binaryPath, err = buildBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build binary: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(binaryPath)

	code := m.Run()
	os.Exit(code)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	tc := &testContext{}

	// Setup: create temp directory before each scenario
	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tmpDir, err := os.MkdirTemp("", "ecat2nii-e2e-*")
		if err != nil {
			return ctx, err
		}
		tc.tmpDir = tmpDir
		return ctx, nil
	})

	// Teardown: cleanup temp directory after each scenario
	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.tmpDir != "" {
			os.RemoveAll(tc.tmpDir)
		}
		return ctx, nil
	})

	// Step definitions
	sc.Step(`^ecat2nii is built$`, tc.ecat2niiIsBuilt)
	sc.Step(`^a PET scan "([^"]*)" with (\d+) frames$`, tc.aPETScanWithFrames)
	sc.Step(`^a truncated PET scan "([^"]*)"$`, tc.aTruncatedPETScan)
	sc.Step(`^a tracer defaults file "([^"]*)"$`, tc.aTracerDefaultsFile)
	sc.Step(`^a file "([^"]*)" that is not a PET scan$`, tc.aNonPETFile)
	sc.Step(`^I run ecat2nii with "([^"]*)"$`, tc.iRunEcat2niiWith)
	sc.Step(`^the exit code should be (\d+)$`, tc.theExitCodeShouldBe)
	sc.Step(`^the output should contain "([^"]*)"$`, tc.theOutputShouldContain)
	sc.Step(`^"([^"]*)" should exist$`, tc.shouldExist)
	sc.Step(`^"([^"]*)" should not exist$`, tc.shouldNotExist)
	sc.Step(`^"([^"]*)" should be a NIfTI file with (\d+) frames$`, tc.shouldBeNIfTIWithFrames)
}

func (tc *testContext) ecat2niiIsBuilt() error {
	if binaryPath == "" {
		return fmt.Errorf("binary not built")
	}
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		return fmt.Errorf("binary does not exist at %s", binaryPath)
	}
	return nil
}

// aPETScanWithFrames writes a synthetic 8x8x4 int16 acquisition.
func (tc *testContext) aPETScanWithFrames(name string, frames int) error {
	b := &ecattest.Builder{IsotopeName: "F-18", ScanStart: 9 * 3600}
	for i := 1; i <= frames; i++ {
		samples := make([]int16, 8*8*4)
		for j := range samples {
			samples[j] = int16((i * j) % 1000)
		}
		b.AddFrame(ecattest.Frame{
			Index: i, Dims: [3]int16{8, 8, 4},
			Int16Samples: samples,
			StartTime:    uint32((i - 1) * 30000),
			Duration:     30000,
		})
	}
	return os.WriteFile(filepath.Join(tc.tmpDir, name), b.Bytes(), 0644)
}

func (tc *testContext) aTruncatedPETScan(name string) error {
	b := &ecattest.Builder{}
	b.AddFrame(ecattest.Frame{
		Index: 1, Dims: [3]int16{8, 8, 4},
		Int16Samples: make([]int16, 8*8*4),
	})
	raw := b.Bytes()
	// Cut the file in the middle of the pixel data.
	return os.WriteFile(filepath.Join(tc.tmpDir, name), raw[:len(raw)-300], 0644)
}

func (tc *testContext) aTracerDefaultsFile(name string) error {
	yaml := `tracer_name: FDG
tracer_radionuclide: F18
injected_radioactivity_mbq: 185.0
injected_mass_ug: 5.0
molar_activity_gbq_umol: 55.5
time_zero: "09:00:00"
mode_of_administration: bolus
`
	return os.WriteFile(filepath.Join(tc.tmpDir, name), []byte(yaml), 0644)
}

func (tc *testContext) aNonPETFile(name string) error {
	return os.WriteFile(filepath.Join(tc.tmpDir, name), []byte("just some text\n"), 0644)
}

func (tc *testContext) iRunEcat2niiWith(args string) error {
	// Replace {tmpdir} placeholder with actual temp directory
	args = strings.ReplaceAll(args, "{tmpdir}", tc.tmpDir)

	// Split args respecting quotes
	argList := splitArgs(args)

	cmd := exec.Command(binaryPath, argList...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	tc.output = output.String()

	if exitErr, ok := err.(*exec.ExitError); ok {
		tc.exitCode = exitErr.ExitCode()
	} else if err != nil {
		return fmt.Errorf("failed to run command: %w", err)
	} else {
		tc.exitCode = 0
	}

	return nil
}

func (tc *testContext) theExitCodeShouldBe(expected int) error {
	if tc.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nOutput:\n%s", expected, tc.exitCode, tc.output)
	}
	return nil
}

func (tc *testContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(tc.output, expected) {
		return fmt.Errorf("output does not contain %q\nOutput:\n%s", expected, tc.output)
	}
	return nil
}

func (tc *testContext) shouldExist(path string) error {
	path = strings.ReplaceAll(path, "{tmpdir}", tc.tmpDir)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	return nil
}

func (tc *testContext) shouldNotExist(path string) error {
	path = strings.ReplaceAll(path, "{tmpdir}", tc.tmpDir)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("path exists but should not: %s", path)
	}
	return nil
}

// shouldBeNIfTIWithFrames checks the header magic and the dim[4] frame count.
func (tc *testContext) shouldBeNIfTIWithFrames(path string, frames int) error {
	path = strings.ReplaceAll(path, "{tmpdir}", tc.tmpDir)

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) < 352 {
		return fmt.Errorf("file too short for a NIfTI header: %d bytes", len(raw))
	}
	if string(raw[344:347]) != "n+1" {
		return fmt.Errorf("bad NIfTI magic: %q", raw[344:348])
	}
	// dim[4] lives at offset 40 + 4*2, little-endian.
	got := int(raw[48]) | int(raw[49])<<8
	if got != frames {
		return fmt.Errorf("expected %d frames, header declares %d", frames, got)
	}
	return nil
}

// splitArgs splits a command line string into arguments
func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
