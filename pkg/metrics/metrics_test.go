package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created and register its collectors", func() {
				So(manager, ShouldNotBeNil)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.trainingEpochLoss.Set(1.5)

			Convey("Then metric names should carry the namespace and subsystem", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_training_epoch_loss" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		Convey("When recording a training epoch", func() {
			RecordTrainingEpoch(0.42, 0.01)

			Convey("Then the loss gauge should reflect it", func() {
				So(testutil.ToFloat64(globalManager.trainingEpochLoss), ShouldEqual, 0.42)
				So(testutil.ToFloat64(globalManager.trainingLearningRate), ShouldEqual, 0.01)
			})
		})

		Convey("When recording an acquisition gap", func() {
			before := testutil.ToFloat64(globalManager.acquisitionGaps.WithLabelValues("rider_profile"))
			RecordAcquisitionGap("rider_profile")

			Convey("Then the counter should increase by one", func() {
				after := testutil.ToFloat64(globalManager.acquisitionGaps.WithLabelValues("rider_profile"))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When publishing a snapshot", func() {
			UpdateSnapshotPublished(120, 900, 1700000000)

			Convey("Then the snapshot gauges should be set", func() {
				So(testutil.ToFloat64(globalManager.snapshotRiders), ShouldEqual, 120)
				So(testutil.ToFloat64(globalManager.snapshotEvents), ShouldEqual, 900)
			})
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordHTTPRequest("cyclists", "GET", "200")
				RecordHTTPRequestDuration("cyclists", "GET", "200", 3)
				RecordErrorByComponent("trainer", "insufficient_data")
				RecordErrorByType("not_found", "medium")
				RecordErrorByEndpoint("similar", "POST", "not_found")
				RecordSimilarityQuery("ok", 1.2, 10)
				RecordSnapshotReload("success")
				RecordTrainingRun("success", 12)
				UpdateDatasetShape(3, 4, 9)
				RecordAcquisitionFetch("stage", "ok", 120)
				RecordStorageOp("file", "put", "ok", 2)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		families, err := GetRegistry().Gather()

		Convey("Then it should only expose our namespace", func() {
			So(err, ShouldBeNil)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "cycsim_"), ShouldBeTrue)
			}
		})
	})
}
