package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semval/internal/domain"
	"semval/internal/semantic"
	"semval/internal/testutil"
	"semval/internal/warehouse"
)

const (
	aliasQuery    = "WITH __ALIAS AS (SELECT ALIAS, ZIP_CODE FROM AUTOSQL_DATASET_BIRD_V2.ADDRESS.ALIAS) SELECT * FROM __ALIAS LIMIT 1"
	areaCodeQuery = "WITH __AREA_CODE AS (SELECT ZIP_CODE, AREA_CODE FROM AUTOSQL_DATASET_BIRD_V2.ADDRESS.AREA_CODE) SELECT * FROM __AREA_CODE LIMIT 1"
	testAccount   = "test_account"
)

// testdataDir returns the absolute path to testdata relative to this test file.
func testdataDir(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	return filepath.Join(filepath.Dir(filename), "testdata")
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(testdataDir(t), name))
	require.NoError(t, err)
	return string(data)
}

type harness struct {
	exec    *testutil.MockQueryExecutor
	factory *testutil.MockConnectorFactory
	logs    *testutil.RecordingHandler
	metrics *Metrics
	v       *Validator
}

func newHarness() *harness {
	h := &harness{
		exec: &testutil.MockQueryExecutor{},
		logs: testutil.NewRecordingHandler(),
	}
	h.factory = &testutil.MockConnectorFactory{Executor: h.exec}
	h.metrics = NewMetrics()
	h.v = New(Options{Logger: slog.New(h.logs), Connectors: h.factory, Metrics: h.metrics})
	return h
}

func TestValidate_ValidModel(t *testing.T) {
	for _, fixture := range []string{"valid.yaml", "valid_flow.yaml"} {
		t.Run(fixture, func(t *testing.T) {
			h := newHarness()

			require.NoError(t, h.v.Validate(context.Background(), readFixture(t, fixture), testAccount))

			assert.Equal(t, []string{aliasQuery, areaCodeQuery}, h.exec.Queries())
			assert.Equal(t, []string{testAccount}, h.factory.Accounts)
			assert.Equal(t, 1, h.exec.CloseCount())
			assert.Equal(t, []string{
				"Checking logical table: ALIAS",
				"Validated logical table: ALIAS",
				"Checking logical table: AREA_CODE",
				"Validated logical table: AREA_CODE",
				"Successfully validated!",
			}, h.logs.Messages(slog.LevelInfo))

			runID, ok := h.logs.Attr("run_id")
			require.True(t, ok)
			assert.NotEmpty(t, runID.String())
		})
	}
}

func TestValidate_ParserErrorsAreNotWrapped(t *testing.T) {
	tests := []struct {
		fixture     string
		target      any
		errContains string
	}{
		{"duplicate_key.yaml", new(*domain.DuplicateKeyError), `duplicate key "kind"`},
		{"uppercase_aggregation.yaml", new(*domain.SchemaValidationError),
			"when expecting one of: aggregation_type_unknown, sum, avg, median, min, max, count, count_distinct"},
	}

	for _, tc := range tests {
		t.Run(tc.fixture, func(t *testing.T) {
			h := newHarness()
			err := h.v.Validate(context.Background(), readFixture(t, tc.fixture), testAccount)
			require.Error(t, err)
			require.ErrorAs(t, err, tc.target)
			assert.Contains(t, err.Error(), tc.errContains)

			var wrapped *domain.ModelValidationError
			assert.False(t, errors.As(err, &wrapped), "parser errors carry no prefix")
			assert.Empty(t, h.factory.Accounts, "warehouse must not be contacted")
		})
	}
}

func TestValidate_UnmatchedQuote(t *testing.T) {
	h := newHarness()
	err := h.v.Validate(context.Background(), readFixture(t, "unmatched_quote.yaml"), testAccount)
	require.Error(t, err)

	assert.True(t, strings.HasPrefix(err.Error(),
		"Unable to validate your semantic model. Error = Unable to parse sql statement."), err.Error())
	assert.Empty(t, h.exec.Queries())
	assert.Equal(t, []string{"Checking logical table: ALIAS"}, h.logs.Messages(slog.LevelInfo))
}

func TestValidate_ObjectDatatype(t *testing.T) {
	h := newHarness()
	err := h.v.Validate(context.Background(), readFixture(t, "object_datatype.yaml"), testAccount)
	require.Error(t, err)

	assert.Equal(t, "Unable to validate your semantic model. Error = "+
		"We do not support object datatypes in the semantic model. Col ZIP_CODE has data type OBJECT. "+
		"Please remove this column from your semantic model or flatten it to non-object type.", err.Error())
	var dtErr *domain.UnsupportedDatatypeError
	require.ErrorAs(t, err, &dtErr)
	assert.Empty(t, h.factory.Accounts, "semantic checks run before the warehouse is contacted")
}

func TestValidate_TooLarge(t *testing.T) {
	valid := readFixture(t, "valid.yaml")
	pad := 164952 - len(valid) - len("\n# ") - 1
	text := valid + "\n# " + strings.Repeat("x", pad) + "\n"
	require.Len(t, text, 164952)

	h := newHarness()
	err := h.v.Validate(context.Background(), text, testAccount)
	require.Error(t, err)

	assert.Equal(t, "Unable to validate your semantic model. Error = "+
		"Your semantic model is too large. Passed size is 164952 characters. "+
		"We need you to remove 41032 characters in your semantic model. Please check: \n"+
		" (1) If you have long descriptions that can be truncated. \n"+
		" (2) If you can remove some columns that are not used within your tables. \n"+
		" (3) If you have extra tables you do not need.", err.Error())
	assert.Equal(t, domain.KindSizeLimit, domain.ErrorKind(err))
}

func TestValidate_SizeCheckedBeforeParse(t *testing.T) {
	text := "name: 'unterminated\n" + strings.Repeat("x", semantic.MaxContextChars)

	err := newHarness().v.Validate(context.Background(), text, testAccount)
	var sizeErr *domain.SizeLimitError
	require.ErrorAs(t, err, &sizeErr)
}

func TestValidate_LongVerifiedQueries(t *testing.T) {
	var b strings.Builder
	b.WriteString(readFixture(t, "valid.yaml"))
	b.WriteString("verified_queries:\n")
	for i := 0; b.Len() < 2*semantic.MaxContextChars; i++ {
		fmt.Fprintf(&b, "  - name: area code count %d\n", i)
		b.WriteString("    question: How many distinct area codes are there for zip codes aliased as Holtsville?\n")
		b.WriteString("    sql: SELECT COUNT(DISTINCT a.AREA_CODE) FROM __AREA_CODE a JOIN __ALIAS b ON a.ZIP_CODE = b.ZIP_CODE WHERE b.ALIAS = 'Holtsville'\n")
		b.WriteString("    verified_at: 1714752498\n")
		b.WriteString("    verified_by: jane\n")
	}

	h := newHarness()
	require.NoError(t, h.v.Validate(context.Background(), b.String(), testAccount))
	assert.Len(t, h.exec.Queries(), 2)
}

func TestValidate_WarehouseFailure(t *testing.T) {
	h := newHarness()
	h.exec.ExecuteFn = func(_ context.Context, query string) (*domain.ResultSet, error) {
		if query == areaCodeQuery {
			return nil, errors.New("Object 'AUTOSQL_DATASET_BIRD_V2.ADDRESS.AREA_CODE' does not exist or not authorized")
		}
		return &domain.ResultSet{}, nil
	}

	res := h.v.Run(context.Background(), readFixture(t, "valid.yaml"), testAccount)
	require.Error(t, res.Err)
	assert.True(t, strings.HasPrefix(res.Err.Error(), domain.ValidationErrorPrefix))
	assert.Contains(t, res.Err.Error(), "does not exist or not authorized")

	var qErr *domain.QueryExecutionError
	require.ErrorAs(t, res.Err, &qErr)
	assert.Equal(t, "AREA_CODE", qErr.Table)
	assert.Equal(t, areaCodeQuery, qErr.Query)

	assert.Equal(t, "my test semantic model", res.Model)
	require.Len(t, res.Tables, 2)
	assert.NoError(t, res.Tables[0].Err)
	assert.Equal(t, 1, h.exec.CloseCount(), "connector is closed on failure")
	assert.NotContains(t, h.logs.Messages(slog.LevelInfo), "Validated logical table: AREA_CODE")
	assert.NotContains(t, h.logs.Messages(slog.LevelInfo), "Successfully validated!")
}

func TestValidate_ConnectorOpenFailure(t *testing.T) {
	h := newHarness()
	h.factory.OpenFn = func(context.Context, string) (domain.QueryExecutor, error) {
		return nil, errors.New("account locked")
	}

	err := h.v.Validate(context.Background(), readFixture(t, "valid.yaml"), testAccount)
	require.Error(t, err)
	assert.Equal(t, domain.ValidationErrorPrefix+`connect to warehouse account "test_account": account locked`, err.Error())
	assert.Equal(t, domain.KindQueryExecution, domain.ErrorKind(err))
}

func TestValidate_Idempotent(t *testing.T) {
	h := newHarness()
	text := readFixture(t, "valid.yaml")

	first := h.v.Run(context.Background(), text, testAccount)
	second := h.v.Run(context.Background(), text, testAccount)
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, []string{aliasQuery, areaCodeQuery, aliasQuery, areaCodeQuery}, h.exec.Queries())
	assert.Equal(t, 2, h.exec.CloseCount())
}

func TestValidateFromPath(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.v.ValidateFromPath(context.Background(), filepath.Join(testdataDir(t), "valid.yaml"), testAccount))

	err := h.v.ValidateFromPath(context.Background(), filepath.Join(testdataDir(t), "missing.yaml"), testAccount)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateModel(t *testing.T) {
	model, err := semantic.Parse(readFixture(t, "valid.yaml"))
	require.NoError(t, err)

	h := newHarness()
	require.NoError(t, h.v.ValidateModel(context.Background(), model, testAccount))
	assert.Equal(t, []string{aliasQuery, areaCodeQuery}, h.exec.Queries())
}

func TestMetrics_Textfile(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.v.Validate(context.Background(), readFixture(t, "valid.yaml"), testAccount))
	require.Error(t, h.v.Validate(context.Background(), readFixture(t, "object_datatype.yaml"), testAccount))

	path := filepath.Join(t.TempDir(), "semval.prom")
	require.NoError(t, h.metrics.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `semval_validation_runs_total{result="ok"} 1`)
	assert.Contains(t, out, `semval_validation_runs_total{result="unsupported_datatype"} 1`)
	assert.Contains(t, out, `semval_tables_verified_total{result="ok"} 2`)
	assert.Contains(t, out, `semval_stage_duration_seconds_count{stage="warehouse"} 1`)

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordRun("ok", 0) })
	assert.NoError(t, nilMetrics.WriteTextfile(path))
}

func TestValidate_DuckDBWarehouse(t *testing.T) {
	reg := warehouse.NewRegistry(map[string]warehouse.Account{
		testAccount: {
			Driver: warehouse.DriverDuckDB,
			Init: []string{
				"ATTACH ':memory:' AS AUTOSQL_DATASET_BIRD_V2",
				"CREATE SCHEMA AUTOSQL_DATASET_BIRD_V2.ADDRESS",
				"CREATE TABLE AUTOSQL_DATASET_BIRD_V2.ADDRESS.ALIAS (ALIAS VARCHAR, ZIP_CODE INTEGER)",
				"CREATE TABLE AUTOSQL_DATASET_BIRD_V2.ADDRESS.AREA_CODE (ZIP_CODE INTEGER, AREA_CODE INTEGER)",
				"INSERT INTO AUTOSQL_DATASET_BIRD_V2.ADDRESS.ALIAS VALUES ('Holtsville', 501)",
				"INSERT INTO AUTOSQL_DATASET_BIRD_V2.ADDRESS.AREA_CODE VALUES (501, 631)",
			},
		},
	}, slog.New(slog.DiscardHandler))

	logs := testutil.NewRecordingHandler()
	v := New(Options{Logger: slog.New(logs), Connectors: reg, Concurrency: 2})

	res := v.Run(context.Background(), readFixture(t, "valid.yaml"), testAccount)
	require.NoError(t, res.Err)
	require.Len(t, res.Tables, 2)
	assert.Equal(t, 1, res.Tables[0].Rows)
	assert.Equal(t, "Successfully validated!", logs.Messages(slog.LevelInfo)[4])

	err := v.Validate(context.Background(), readFixture(t, "valid.yaml"), "unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown warehouse account "unknown"`)
}

func TestStatic(t *testing.T) {
	tests := []struct {
		fixture string
		wantErr string
		wrapped bool
	}{
		{"valid.yaml", "", false},
		{"duplicate_key.yaml", `duplicate key "kind"`, false},
		{"object_datatype.yaml", "Col ZIP_CODE has data type OBJECT", true},
		// The SQL pre-flight belongs to the warehouse stage.
		{"unmatched_quote.yaml", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.fixture, func(t *testing.T) {
			model, err := Static(readFixture(t, tc.fixture))
			if tc.wantErr == "" {
				require.NoError(t, err)
				require.NotNil(t, model)
				assert.Equal(t, "my test semantic model", model.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			var wrapped *domain.ModelValidationError
			assert.Equal(t, tc.wrapped, errors.As(err, &wrapped))
		})
	}
}
