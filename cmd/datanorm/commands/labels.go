package commands

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datanorm/datanorm/pkg/labels"
)

func newLabelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Inspect label files and run translations",
	}

	cmd.AddCommand(newLabelsListCommand())
	cmd.AddCommand(newLabelsShowCommand())
	cmd.AddCommand(newLabelsTranslateCommand())

	return cmd
}

// fileManager wraps a single label file in a LabelfileManager.
func fileManager(path string) (*labels.LabelfileManager, string, error) {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := labels.NewLabelfileManager(filepath.Dir(path), map[string]string{id: filepath.Base(path)})
	if err != nil {
		return nil, "", err
	}
	return m, id, nil
}

func newLabelsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "List the labelsets in a label file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, id, err := fileManager(args[0])
			if err != nil {
				return err
			}
			sets, err := m.Labelsets(id)
			if err != nil {
				return err
			}
			for _, s := range sets {
				fmt.Println(s)
			}
			return nil
		},
	}
}

func newLabelsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file> <labelset>",
		Short: "Show the codes and label columns of a labelset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, id, err := fileManager(args[0])
			if err != nil {
				return err
			}
			lm, err := m.GetLabelMap(id, args[1])
			if err != nil {
				return err
			}

			fmt.Printf("labelset: %s\n", lm.Name())
			fmt.Printf("columns:  %s\n", strings.Join(lm.Columns(), ", "))
			attrs := lm.Attrs()
			attrKeys := make([]string, 0, len(attrs))
			for key := range attrs {
				attrKeys = append(attrKeys, key)
			}
			sort.Strings(attrKeys)
			for _, key := range attrKeys {
				fmt.Printf("%s: %v\n", key, attrs[key])
			}
			fmt.Println("codes:")
			for _, code := range lm.Codes() {
				fmt.Printf("  %s\n", code)
			}
			return nil
		},
	}
}

func newLabelsTranslateCommand() *cobra.Command {
	var missingAsNA bool

	cmd := &cobra.Command{
		Use:   "translate <file> <labelset> <from> <to> <value>...",
		Short: "Translate values between labelset axes",
		Example: `  # Translate codes to full names
  datanorm labels translate flows.yaml flows code name PROD IMP

  # Missing values become blanks instead of errors
  datanorm labels translate --missing-as-na flows.yaml flows code name PROD XXX`,
		Args: cobra.MinimumNArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, id, err := fileManager(args[0])
			if err != nil {
				return err
			}
			lm, err := m.GetLabelMap(id, args[1])
			if err != nil {
				return err
			}

			values := make([]any, len(args[4:]))
			for i, v := range args[4:] {
				values[i] = v
			}
			onMissing := labels.MissingRaise
			if missingAsNA {
				onMissing = labels.MissingAsNA
			}

			out, err := lm.Translate(values, labels.Axis(args[2]), labels.Axis(args[3]), onMissing)
			if err != nil {
				return err
			}
			for i, v := range out {
				if v == nil {
					fmt.Printf("%v\t<missing>\n", values[i])
				} else {
					fmt.Printf("%v\t%v\n", values[i], v)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&missingAsNA, "missing-as-na", false, "map untranslatable values to missing instead of failing")

	return cmd
}
