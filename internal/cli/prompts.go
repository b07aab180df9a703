package cli

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"github.com/zenwen/etfadvisor/config"
)

// PromptForFund lets the user pick one fund from the configured pool.
func PromptForFund(cfg *config.Config) (config.Fund, error) {
	if len(cfg.Funds) == 0 {
		return config.Fund{}, fmt.Errorf("no funds configured")
	}

	options := make([]string, len(cfg.Funds))
	for i, f := range cfg.Funds {
		options[i] = fmt.Sprintf("%s（%s）", f.Name, f.Code)
	}

	var idx int
	prompt := &survey.Select{
		Message: "选择要分析的基金:",
		Options: options,
	}
	if err := survey.AskOne(prompt, &idx); err != nil {
		return config.Fund{}, err
	}
	return cfg.Funds[idx], nil
}
