package cmd

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"clamc/clam"
	"clamc/common"
	"clamc/config"
	"clamc/lower"
	"clamc/mcore"
	"clamc/report"
)

// loadConfig resolves the effective configuration for this run: the project
// file, then command-line flags, then the pre group of the internal parameter
// string, in that order.
func (d *Driver) loadConfig() (*config.BasicConfig, *config.InternalParams) {
	path := d.configPath
	if path == "" {
		path = filepath.Join(filepath.Dir(d.inputPath), common.ConfigFileName)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		report.ReportFatal("%s", err)
	}

	if d.debug {
		cfg.Debug = true
	}

	if d.showLoc {
		cfg.ShowLoc = true
	}

	params, err := config.ParseInternalParams(os.Getenv(common.InternalParamsVar))
	if err != nil {
		report.ReportFatal("%s", err)
	}

	if err := cfg.Apply(params.Pre); err != nil {
		report.ReportFatal("%s", err)
	}

	return cfg, params
}

// loadProgram reads, decodes, and pre-checks the serialized input program.
// Check diagnostics are flushed to the reporter; the second return value is
// false when any of them were errors.
func (d *Driver) loadProgram() (*mcore.Decoded, bool) {
	if !strings.HasSuffix(d.inputPath, common.McoreFileExt) {
		report.ReportFatal("input must be a `%s` file: `%s`", common.McoreFileExt, d.inputPath)
	}

	buff, err := ioutil.ReadFile(d.inputPath)
	if err != nil {
		report.ReportFatal("unable to read input file: %s", err)
	}

	decoded, err := mcore.DecodeProgram(buff)
	if err != nil {
		report.ReportFatal("%s", err)
	}

	bag := report.NewBag()
	mcore.Check(decoded.Prog, bag)
	report.FlushBag(d.inputPath, bag)

	if bag.HasErrors() {
		return nil, false
	}

	return decoded, true
}

// lowerInput runs the full middle-end pipeline on the input program.  The post
// group of the internal parameter string is folded in after translation so the
// returned configuration reflects the backend toggles.
func (d *Driver) lowerInput() (*clam.Prog, *config.BasicConfig, bool) {
	cfg, params := d.loadConfig()

	decoded, ok := d.loadProgram()
	if !ok {
		return nil, nil, false
	}

	prog := lower.TranslProg(decoded.Prog, decoded.Env, cfg, decoded.Gen)

	if err := cfg.Apply(params.Post); err != nil {
		report.ReportFatal("%s", err)
	}

	return prog, cfg, true
}
