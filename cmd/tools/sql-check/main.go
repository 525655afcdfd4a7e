// cmd/tools/sql-check/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/models"
	"school-query-workers/internal/textsql/classifier"
	"school-query-workers/internal/textsql/schema"
	"school-query-workers/internal/textsql/sqlgen"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	classifyCmd := flag.NewFlagSet("classify", flag.ExitOnError)
	contextCmd := flag.NewFlagSet("context", flag.ExitOnError)

	// Validate command flags
	vRole := validateCmd.String("role", "staff", "Caller role (owner, admin, teacher, staff)")
	vTenant := validateCmd.String("tenant", "", "Tenant id the statement must be scoped to")
	vSQL := validateCmd.String("sql", "", "Statement to check (reads stdin when empty)")
	vGrammar := validateCmd.String("grammar", "advisory", "Grammar check mode (off, advisory, enforce)")
	vNested := validateCmd.Int("max-nested", 3, "Maximum nested SELECTs")

	// Classify command flags
	cMessage := classifyCmd.String("message", "", "Chat message to classify")

	// Context command flags
	xRole := contextCmd.String("role", "staff", "Caller role")
	xTenant := contextCmd.String("tenant", "00000000-0000-0000-0000-000000000000", "Tenant id to render into the context")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		stmt := *vSQL
		if stmt == "" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				fmt.Printf("Error reading stdin: %v\n", err)
				os.Exit(1)
			}
			stmt = string(data)
		}
		if *vTenant == "" || strings.TrimSpace(stmt) == "" {
			fmt.Println("Error: tenant and a statement are required for validate.")
			validateCmd.Usage()
			os.Exit(1)
		}
		res := validate(stmt, *vTenant, models.ParseRole(*vRole), sqlgen.ParseGrammarMode(*vGrammar), *vNested)
		printJSON(res)
		if !res.Executable() {
			os.Exit(2)
		}

	case "classify":
		classifyCmd.Parse(os.Args[2:])
		if *cMessage == "" {
			fmt.Println("Error: message is required for classify.")
			classifyCmd.Usage()
			os.Exit(1)
		}
		printJSON(classifier.Classify(*cMessage))

	case "context":
		contextCmd.Parse(os.Args[2:])
		sc := schema.NewDefaultBuilder().Build(models.ParseRole(*xRole), *xTenant)
		fmt.Printf("Role: %s\nAllowed tables: %s\n\n%s", sc.Role, strings.Join(sc.AllowedTableNames(), ", "), sc.Text)

	default:
		help()
		os.Exit(1)
	}
}

// validate runs the same repair and validation pass a generated statement
// goes through, without calling the generation model.
func validate(stmt, tenantID string, role models.Role, mode sqlgen.GrammarMode, maxNested int) models.SQLGenerationResult {
	builder := schema.NewDefaultBuilder()
	catalog := builder.Catalog()
	validator := sqlgen.NewValidator(catalog, sqlgen.NewRepairer(catalog),
		sqlgen.WithMaxNestedSelects(maxNested),
		sqlgen.WithGrammarCheck(sqlgen.NewVitessChecker(), mode),
	)
	gen := sqlgen.NewGenerator(builder, nil, validator, sqlgen.DefaultRowLimit, logger.NewNoOpLogger())
	return gen.Check(sqlgen.CleanOutput(stmt), tenantID, builder.Build(role, tenantID))
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Error encoding output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func help() {
	fmt.Println("Usage: sql-check <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  validate   Repair and validate a statement for a role and tenant")
	fmt.Println("  classify   Show how a chat message is routed")
	fmt.Println("  context    Print the schema context a role sees")
	fmt.Println("\nRun 'sql-check <command> -h' for options.")
}
