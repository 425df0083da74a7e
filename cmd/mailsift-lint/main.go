package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mailsift/mailsift/internal/rules"
	"github.com/mailsift/mailsift/internal/runtime"
)

type lintConfig struct {
	rulesPath string
	failOn    string
	normalize bool
}

func main() {
	cfg := parseLintFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsift-lint failed", "error", err)
		os.Exit(1)
	}
}

func parseLintFlags() lintConfig {
	rulesPath := flag.String("rules", "email_rules.json", "path to the ruleset file")
	failOn := flag.String("fail-on", "contradiction,overlap,dead", "comma separated finding codes that fail the run")
	normalize := flag.Bool("normalize", false, "rewrite the ruleset file with canonical token spellings")
	flag.Parse()

	return lintConfig{
		rulesPath: *rulesPath,
		failOn:    *failOn,
		normalize: *normalize,
	}
}

func run(cfg lintConfig) error {
	ruleset, err := rules.Load(cfg.rulesPath)
	if err != nil {
		return err
	}
	report, err := rules.Lint(ruleset)
	if err != nil {
		return err
	}
	fmt.Print(report.HumanSummary())
	if cfg.normalize {
		canon, err := ruleset.Canonical()
		if err != nil {
			return err
		}
		if err := rules.Save(canon, cfg.rulesPath); err != nil {
			return err
		}
	}
	if report.ShouldFail(rules.ParseFailOn(cfg.failOn)) {
		return fmt.Errorf("lint findings present")
	}
	return nil
}
