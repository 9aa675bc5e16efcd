package artifacts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Dan9191/repayment-predictor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vector(onTime, missed float64) []float64 {
	x := make([]float64, len(models.FeatureNames))
	x[0], x[1] = onTime, missed
	return x
}

func TestLoadScaler(t *testing.T) {
	s, err := LoadScaler("testdata/scaler.json")
	require.NoError(t, err)

	values := models.FeatureVector{OnTimeRatio: 1, TimeSinceLastDue: 9999}.Values()
	out, err := s.Transform(values)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, out[0], 1e-9)
	assert.InDelta(t, -1.5, out[1], 1e-9)
	// zero scale is treated as one
	assert.InDelta(t, 9499.0, out[11], 1e-9)
}

func TestParseScaler_SchemaMismatch(t *testing.T) {
	raw := `{"feature_names":["missed_ratio","on_time_ratio"],"mean":[0,0],"scale":[1,1]}`
	_, err := ParseScaler(strings.NewReader(raw))
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
}

func TestParseScaler_LengthMismatch(t *testing.T) {
	raw := `{"feature_names":["` + strings.Join(models.FeatureNames, `","`) + `"],"mean":[0],"scale":[1]}`
	_, err := ParseScaler(strings.NewReader(raw))
	assert.ErrorContains(t, err, "12 features")
}

func TestScaler_TransformRejectsWrongWidth(t *testing.T) {
	s, err := LoadScaler("testdata/scaler.json")
	require.NoError(t, err)

	_, err = s.Transform([]float64{1, 2})
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
}

func TestLoadModel_Forest(t *testing.T) {
	m, err := LoadModel("testdata/forest.pmml", models.FeatureNames)
	require.NoError(t, err)

	tests := []struct {
		name string
		x    []float64
		want float64
	}{
		{name: "good payer", x: vector(1, -1), want: 85},
		{name: "bad payer", x: vector(-1, 1), want: 25},
		{name: "boundary", x: vector(0, 0), want: 55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Predict(tt.x)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseModel_Regression(t *testing.T) {
	doc := `<PMML version="4.4">
  <RegressionModel functionName="regression">
    <MiningSchema>
      <MiningField name="on_time_ratio"/>
      <MiningField name="missed_ratio"/>
    </MiningSchema>
    <RegressionTable intercept="60">
      <NumericPredictor name="on_time_ratio" coefficient="10"/>
      <NumericPredictor name="missed_ratio" coefficient="-5" exponent="2"/>
    </RegressionTable>
  </RegressionModel>
</PMML>`

	m, err := ParseModel([]byte(doc), models.FeatureNames)
	require.NoError(t, err)

	got, err := m.Predict(vector(2, 3))
	require.NoError(t, err)
	assert.InDelta(t, 60+20-45, got, 1e-9)
}

func TestParseModel_UnknownField(t *testing.T) {
	doc := `<PMML version="4.4">
  <RegressionModel functionName="regression">
    <MiningSchema><MiningField name="credit_score"/></MiningSchema>
    <RegressionTable intercept="1"/>
  </RegressionModel>
</PMML>`

	_, err := ParseModel([]byte(doc), models.FeatureNames)
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
}

func TestParseModel_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not pmml", doc: `<model/>`},
		{name: "no model", doc: `<PMML><Header/></PMML>`},
		{name: "classification", doc: `<PMML><TreeModel functionName="classification"><Node score="1"><True/></Node></TreeModel></PMML>`},
		{name: "leaf without score", doc: `<PMML><TreeModel functionName="regression"><Node><True/></Node></TreeModel></PMML>`},
		{name: "bad operator", doc: `<PMML><TreeModel functionName="regression"><Node score="1"><True/><Node score="2"><SimplePredicate field="due_ratio" operator="isMissing"/></Node></Node></TreeModel></PMML>`},
		{name: "unsupported ensemble", doc: `<PMML><MiningModel functionName="regression"><Segmentation multipleModelMethod="majorityVote"/></MiningModel></PMML>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel([]byte(tt.doc), models.FeatureNames)
			assert.Error(t, err)
		})
	}
}

func TestPMMLModel_RejectsWrongWidth(t *testing.T) {
	m, err := LoadModel("testdata/forest.pmml", models.FeatureNames)
	require.NoError(t, err)

	_, err = m.Predict([]float64{1})
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
}

const weightedSegments = `<PMML version="4.4">
  <MiningModel functionName="regression">
    <Segmentation multipleModelMethod="%s">
      <Segment id="1" weight="3"><True/><RegressionModel functionName="regression"><RegressionTable intercept="90"/></RegressionModel></Segment>
      <Segment id="2" weight="1"><True/><RegressionModel functionName="regression"><RegressionTable intercept="10"/></RegressionModel></Segment>
    </Segmentation>
  </MiningModel>
</PMML>`

func TestParseModel_SegmentationMethods(t *testing.T) {
	tests := []struct {
		method string
		want   float64
	}{
		{method: "average", want: 50},
		{method: "weightedAverage", want: 70},
		{method: "sum", want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			m, err := ParseModel([]byte(fmt.Sprintf(weightedSegments, tt.method)), models.FeatureNames)
			require.NoError(t, err)

			got, err := m.Predict(vector(0, 0))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

const partialTree = `<PMML version="4.4">
  <TreeModel functionName="regression"%s>
    <Node score="40">
      <True/>
      <Node score="95">
        <SimplePredicate field="on_time_ratio" operator="greaterThan" value="0.5"/>
      </Node>
    </Node>
  </TreeModel>
</PMML>`

func TestParseModel_NoTrueChildStrategy(t *testing.T) {
	tests := []struct {
		name    string
		attr    string
		want    float64
		wantErr bool
	}{
		{name: "default returns null", attr: "", wantErr: true},
		{name: "explicit null", attr: ` noTrueChildStrategy="returnNullPrediction"`, wantErr: true},
		{name: "last prediction", attr: ` noTrueChildStrategy="returnLastPrediction"`, want: 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseModel([]byte(fmt.Sprintf(partialTree, tt.attr)), models.FeatureNames)
			require.NoError(t, err)

			matched, err := m.Predict(vector(0.9, 0))
			require.NoError(t, err)
			assert.InDelta(t, 95, matched, 1e-9)

			got, err := m.Predict(vector(0.1, 0))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseModel_UnsupportedNoTrueChildStrategy(t *testing.T) {
	_, err := ParseModel([]byte(fmt.Sprintf(partialTree, ` noTrueChildStrategy="guess"`)), models.FeatureNames)
	assert.Error(t, err)
}
