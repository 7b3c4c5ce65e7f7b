package sidecar

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults is the typed per-scanner defaults record supplying the tracer and
// injection values an ECAT file does not carry. It is parsed exactly once;
// keys outside this struct fail the load instead of being ignored.
type Defaults struct {
	TracerName            string  `yaml:"tracer_name"`
	TracerRadionuclide    string  `yaml:"tracer_radionuclide"`
	InjectedRadioactivity float64 `yaml:"injected_radioactivity_mbq"`
	InjectedMass          float64 `yaml:"injected_mass_ug"`
	MolarActivity         float64 `yaml:"molar_activity_gbq_umol"`
	TimeZero              string  `yaml:"time_zero"`
	Units                 string  `yaml:"units"`
	BodyPart              string  `yaml:"body_part"`
	ModeOfAdministration  string  `yaml:"mode_of_administration"`

	ImageDecayCorrected      *bool  `yaml:"image_decay_corrected"`
	ImageDecayCorrectionTime string `yaml:"image_decay_correction_time"`
	ReconMethodName          string `yaml:"recon_method_name"`
	ReconFilterType          string `yaml:"recon_filter_type"`
	ReconFilterSize          string `yaml:"recon_filter_size"`
	AttenuationCorrection    string `yaml:"attenuation_correction"`
}

// missingRequired checks the fixed set of mandatory defaults explicitly
// rather than through dynamic existence probing.
func (d *Defaults) missingRequired() []string {
	var missing []string
	if d.TracerName == "" {
		missing = append(missing, "tracer_name")
	}
	if d.TracerRadionuclide == "" {
		missing = append(missing, "tracer_radionuclide")
	}
	if d.InjectedRadioactivity <= 0 {
		missing = append(missing, "injected_radioactivity_mbq")
	}
	if d.InjectedMass <= 0 {
		missing = append(missing, "injected_mass_ug")
	}
	if d.MolarActivity <= 0 {
		missing = append(missing, "molar_activity_gbq_umol")
	}
	if d.TimeZero == "" {
		missing = append(missing, "time_zero")
	}
	return missing
}

// Validate checks the mandatory keys and fills the fixed-unit fields.
func (d *Defaults) Validate() error {
	if missing := d.missingRequired(); len(missing) > 0 {
		return fmt.Errorf("sidecar defaults missing required keys: %s", strings.Join(missing, ", "))
	}
	if d.Units == "" {
		d.Units = "Bq/mL"
	}
	if d.BodyPart == "" {
		d.BodyPart = "Brain"
	}
	return nil
}

// LoadDefaults parses the YAML defaults file. Unknown keys are an error.
func LoadDefaults(path string) (*Defaults, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open defaults %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var d Defaults
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parse defaults %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// sidecarSeed copies the defaults into a fresh sidecar.
func (d *Defaults) sidecarSeed() *Sidecar {
	return &Sidecar{
		TracerName:                 d.TracerName,
		TracerRadionuclide:         d.TracerRadionuclide,
		InjectedRadioactivity:      d.InjectedRadioactivity,
		InjectedRadioactivityUnits: "MBq",
		InjectedMass:               d.InjectedMass,
		InjectedMassUnits:          "ug",
		MolarActivity:              d.MolarActivity,
		MolarActivityUnits:         "GBq/umol",
		TimeZero:                   d.TimeZero,
		Units:                      d.Units,
		BodyPart:                   d.BodyPart,
		ModeOfAdministration:       d.ModeOfAdministration,
		ImageDecayCorrected:        d.ImageDecayCorrected,
		ImageDecayCorrectionTime:   d.ImageDecayCorrectionTime,
		ReconMethodName:            d.ReconMethodName,
		ReconFilterType:            d.ReconFilterType,
		ReconFilterSize:            d.ReconFilterSize,
		AttenuationCorrection:      d.AttenuationCorrection,
	}
}
