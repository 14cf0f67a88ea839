package prediction

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-service/internal/dataset"
	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/model"
)

func trainSmallModel(t *testing.T, cfg model.Config) *model.Model {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,State,County,City," + strings.Join(domain.MetricColumns(), ",") + "\n")
	for day := 1; day <= 20; day++ {
		fmt.Fprintf(&b, "2022-05-%02d,CA,Los Angeles,Los Angeles,0.04,0.05,%d,0.3,0.4,5,1,2,3,10,20,15\n", day, 30+day)
		fmt.Fprintf(&b, "2022-05-%02d,NY,Kings,Brooklyn,0.03,0.04,%d,0.2,0.3,4,1,2,2,12,22,18\n", day, 20+day)
	}
	ds, err := dataset.Read(strings.NewReader(b.String()), 2020)
	require.NoError(t, err)

	m, err := model.NewTrainer(cfg, discardLogger()).Train(context.Background(), ds)
	require.NoError(t, err)
	return m
}
