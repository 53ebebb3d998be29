package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/catalog"
)

type catalogSeed struct {
	Subjects []catalog.NewSubject `json:"subjects"`
	AddOns   []catalog.NewAddOn   `json:"addons"`
}

// seedCatalog creates the subjects and add-ons listed in a JSON file. Entries
// whose name already exists are skipped so the command can be re-run.
func (cli *commandLine) seedCatalog(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening seed file")
	}
	defer f.Close()

	var seed catalogSeed
	if err = json.NewDecoder(f).Decode(&seed); err != nil {
		return errors.Wrap(err, "decoding seed file")
	}

	ctx := context.Background()
	var created, skipped int

	for _, ns := range seed.Subjects {
		ns := ns
		if err = ns.Validate(cli.validate, cli.catalogSvc); err != nil {
			if isNameTaken(err) {
				skipped++
				continue
			}
			return errors.Wrapf(err, "validating subject %q", ns.Name)
		}
		if _, err = cli.catalogSvc.CreateSubject(ctx, ns); err != nil {
			return errors.Wrapf(err, "creating subject %q", ns.Name)
		}
		created++
	}

	for _, na := range seed.AddOns {
		na := na
		if err = na.Validate(cli.validate, cli.catalogSvc); err != nil {
			if isNameTaken(err) {
				skipped++
				continue
			}
			return errors.Wrapf(err, "validating add-on %q", na.Name)
		}
		if _, err = cli.catalogSvc.CreateAddOn(ctx, na); err != nil {
			return errors.Wrapf(err, "creating add-on %q", na.Name)
		}
		created++
	}

	fmt.Printf("seedcatalog: %d created, %d skipped\n", created, skipped)
	return nil
}

func isNameTaken(err error) bool {
	if errors.Cause(err) == catalog.ErrNameExists {
		return true
	}
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	return ok && vErr.Err == catalog.ErrNameExists
}
