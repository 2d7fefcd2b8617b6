package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/seating/pkg/model"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Class is one row of the per-size table
type Class struct {
	Size            int `json:"size" yaml:"size" csv:"size"`
	RequestedGroups int `json:"requested_groups" yaml:"requested_groups" csv:"requested_groups"`
	RequestedPeople int `json:"requested_people" yaml:"requested_people" csv:"requested_people"`
	SeatedPeople    int `json:"seated_people" yaml:"seated_people" csv:"seated_people"`
	SeatedGroups    int `json:"seated_groups" yaml:"seated_groups" csv:"seated_groups"`
}

type Block struct {
	Row    int `json:"row" yaml:"row"`
	Column int `json:"column" yaml:"column"`
	Size   int `json:"size" yaml:"size"`
}

// Document is the rendering-independent form of a plan
type Document struct {
	Status                 string   `json:"status" yaml:"status"`
	Chart                  []string `json:"chart" yaml:"chart"`
	Blocks                 []Block  `json:"blocks" yaml:"blocks"`
	SeatedPeople           int      `json:"seated_people" yaml:"seated_people"`
	RuntimeSeconds         float64  `json:"runtime_seconds" yaml:"runtime_seconds"`
	Gap                    float64  `json:"gap" yaml:"gap"`
	UsableSeats            int      `json:"usable_seats" yaml:"usable_seats"`
	DemandedPeople         int      `json:"demanded_people" yaml:"demanded_people"`
	TheoreticalUtilization float64  `json:"theoretical_utilization" yaml:"theoretical_utilization"`
	Utilization            float64  `json:"utilization" yaml:"utilization"`
	Classes                []Class  `json:"classes" yaml:"classes"`
	Formulation            string   `json:"formulation" yaml:"formulation"`
	Variables              int      `json:"variables" yaml:"variables"`
	Constraints            int      `json:"constraints" yaml:"constraints"`
}

func Build(plan model.Plan) Document {
	chart := make([]string, plan.Layout.Rows())
	for row := 1; row <= plan.Layout.Rows(); row++ {
		var builder strings.Builder
		for column := 1; column <= plan.Layout.Columns(); column++ {
			builder.WriteString(plan.State(row, column).String())
		}
		chart[row-1] = builder.String()
	}

	return Document{
		Status:                 plan.Status.String(),
		Chart:                  chart,
		Blocks:                 lo.Map(plan.Blocks, func(block model.Block, _ int) Block { return Block(block) }),
		SeatedPeople:           plan.SeatedPeople,
		RuntimeSeconds:         plan.Elapsed.Seconds(),
		Gap:                    plan.Gap,
		UsableSeats:            plan.UsableSeats,
		DemandedPeople:         plan.DemandedPeople,
		TheoreticalUtilization: plan.TheoreticalUtilization,
		Utilization:            plan.Utilization,
		Classes:                lo.Map(plan.Classes[:], func(class model.ClassStats, _ int) Class { return classRow(class) }),
		Formulation:            plan.Formulation.String(),
		Variables:              plan.Variables,
		Constraints:            plan.Constraints,
	}
}

func classRow(class model.ClassStats) Class {
	return Class{
		Size:            class.Size,
		RequestedGroups: class.RequestedGroups,
		RequestedPeople: class.RequestedPeople,
		SeatedPeople:    class.SeatedPeople,
		SeatedGroups:    class.SeatedGroups,
	}
}

// Formats lists the accepted output formats
var Formats = []string{"text", "json", "yaml", "csv"}

// Write renders the document in the given format
func Write(writer io.Writer, format string, document Document) error {
	switch strings.ToLower(format) {
	case "", "text":
		return WriteText(writer, document)
	case "json":
		return WriteJSON(writer, document)
	case "yaml":
		return WriteYAML(writer, document)
	case "csv":
		return WriteCSV(writer, document)
	}
	return fmt.Errorf("%v is not a valid format: allowed values are %v", format, strings.Join(Formats, ", "))
}

// WriteText prints the seating chart (0 unusable, 1 empty, x occupied) followed by the detailed solution
func WriteText(writer io.Writer, document Document) error {
	var builder strings.Builder

	builder.WriteString("Seating solution:\n\n")
	for _, row := range document.Chart {
		builder.WriteString(row)
		builder.WriteString("\n")
	}

	fmt.Fprintf(&builder, "\nStatus: %v\n", document.Status)
	fmt.Fprintf(&builder, "Number of people seated: %d\n", document.SeatedPeople)
	fmt.Fprintf(&builder, "Runtime for the optimization: %v seconds\n", round(document.RuntimeSeconds, 5))
	fmt.Fprintf(&builder, "Gap from optimal solution: %v %%\n", round(document.Gap*100, 4))

	builder.WriteString("\nDetailed solution:\n\n")
	fmt.Fprintf(&builder, "Number of seats available: %d\n", document.UsableSeats)
	fmt.Fprintf(&builder, "Number of total people in input: %d\n", document.DemandedPeople)
	fmt.Fprintf(&builder, "Theoretical saturation (with no spacing rule): %v %%\n", round(document.TheoreticalUtilization*100, 2))
	fmt.Fprintf(&builder, "Actual saturation: %v %%\n\n", round(document.Utilization*100, 2))

	for _, class := range document.Classes {
		fmt.Fprintf(&builder, "Number of groups of %d in input: %d -> %d people ----> seated: %d people (%d groups)\n",
			class.Size, class.RequestedGroups, class.RequestedPeople, class.SeatedPeople, class.SeatedGroups)
	}

	_, err := io.WriteString(writer, builder.String())
	return err
}

func WriteJSON(writer io.Writer, document Document) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(document)
}

func WriteYAML(writer io.Writer, document Document) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(document); err != nil {
		return err
	}
	return encoder.Close()
}

// WriteCSV writes the per-size table
func WriteCSV(writer io.Writer, document Document) error {
	return gocsv.Marshal(document.Classes, writer)
}

func round(value float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(value*scale) / scale
}
