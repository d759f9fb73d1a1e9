package metrics

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

const measurement = "servicetag_summary"

// Influx writes one point per run to InfluxDB.
type Influx struct {
	writeAPI api.WriteAPIBlocking
}

// Ensure Influx implements Recorder.
var _ Recorder = (*Influx)(nil)

// NewInflux creates a recorder writing through writeAPI.
func NewInflux(writeAPI api.WriteAPIBlocking) *Influx {
	return &Influx{writeAPI: writeAPI}
}

// NewInfluxClient connects to url and returns the client together with a
// recorder for org and bucket. The caller closes the client.
func NewInfluxClient(url, token, org, bucket string) (influxdb2.Client, *Influx) {
	client := influxdb2.NewClient(url, token)
	return client, NewInflux(client.WriteAPIBlocking(org, bucket))
}

// Record implements Recorder.
func (i *Influx) Record(ctx context.Context, res *domain.RunResult) error {
	fields := map[string]interface{}{
		"changes":          len(res.Changes),
		"duration_seconds": res.CompletedAt.Sub(res.StartedAt).Seconds(),
	}
	if s := res.Summary; s != nil {
		fields["total_services"] = s.TotalServices
		fields["total_ip_ranges"] = s.TotalIPRanges
		fields["ip_changes"] = s.IPChanges
		fields["service_additions"] = s.ServiceAdditions
		fields["service_removals"] = s.ServiceRemovals
	}

	p := influxdb2.NewPoint(
		measurement,
		map[string]string{
			"baseline": strconv.FormatBool(res.Baseline),
		},
		fields,
		res.CompletedAt,
	)
	if err := i.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("writing influxdb point: %w", err)
	}
	return nil
}
