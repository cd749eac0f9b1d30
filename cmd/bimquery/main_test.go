package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bimquery "github.com/kailas-cloud/bimquery/pkg/sdk"
)

const house = `ISO-10303-21;
HEADER;
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#10=IFCWALL('0wall',$,'Exterior Wall',$,'Basic Wall:Ext',$,#30,'W-01',.STANDARD.);
#11=IFCWALL('1wall',$,'Interior Wall',$,$,$,#31,$,.PARTITIONING.);
#12=IFCDOOR('0door',$,'Front Door',$,$,$,$,'D-1',2.1,0.9,.DOOR.,$,$);
#20=IFCPROPERTYSINGLEVALUE('IsExternal',$,IFCBOOLEAN(.T.),$);
#21=IFCPROPERTYSET('ps1',$,'Pset_WallCommon',$,(#20));
#22=IFCRELDEFINESBYPROPERTIES('r1',$,$,$,(#10),#21);
#30=IFCPRODUCTDEFINITIONSHAPE($,$,());
#31=IFCPRODUCTDEFINITIONSHAPE($,$,());
ENDSEC;
END-ISO-10303-21;
`

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "house.ifc")
	require.NoError(t, os.WriteFile(path, []byte(house), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bimquery dev")
}

func TestInspect(t *testing.T) {
	out, err := run(t, "inspect", writeModel(t), "--schema")
	require.NoError(t, err)

	assert.Contains(t, out, "Loaded house.ifc")
	assert.Contains(t, out, "elements: 3 (skipped 0)")
	assert.Contains(t, out, "IFCWALL")
	assert.Contains(t, out, "Pset_WallCommon: IsExternal")
}

func TestInspect_MissingFile(t *testing.T) {
	_, err := run(t, "inspect", filepath.Join(t.TempDir(), "nope.ifc"))
	require.Error(t, err)
}

func TestFilter(t *testing.T) {
	spec := `{"classes":["IFCWALL"],"conditions":[{"field":"pset:Pset_WallCommon:IsExternal","op":"equals","value":true}]}`
	out, err := run(t, "filter", writeModel(t), "--spec", spec)
	require.NoError(t, err)

	assert.Contains(t, out, "#10")
	assert.Contains(t, out, "Exterior Wall")
	assert.NotContains(t, out, "Interior Wall")
	assert.Contains(t, out, "1 element(s)")
}

func TestFilter_SpecFileAndCSV(t *testing.T) {
	specPath := filepath.Join(t.TempDir(), "spec.json")
	require.NoError(t, os.WriteFile(specPath, []byte(`{"classes":["IFCDOOR"]}`), 0o600))

	out, err := run(t, "filter", writeModel(t), "--spec-file", specPath, "--csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Front Door")
}

func TestFilter_RequiresSpec(t *testing.T) {
	_, err := run(t, "filter", writeModel(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--spec")
}

func TestFilter_MalformedSpec(t *testing.T) {
	_, err := run(t, "filter", writeModel(t), "--spec", `{"conditions":[{"op":"equals"}]}`)
	require.ErrorIs(t, err, bimquery.ErrMalformedSpec)
}

func TestAsk_WithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := run(t, "ask", writeModel(t), "external", "walls")
	require.ErrorIs(t, err, bimquery.ErrNotImplemented)
}
