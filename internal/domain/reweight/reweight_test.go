package reweight_test

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/reweight"
)

func TestComputeWeight(t *testing.T) {
	Convey("Given the default reweighter", t, func() {
		r := reweight.New()

		Convey("When weighting a one-day WorldTour race of the reference year", func() {
			w, err := r.ComputeWeight(model.NewRaceEvent(2023, "milano-sanremo/2023/", "1.UWT"), 2023)

			Convey("Then only the class weight applies", func() {
				So(err, ShouldBeNil)
				So(w, ShouldEqual, 2.0)
			})
		})

		Convey("When weighting a GC two years back", func() {
			w, err := r.ComputeWeight(model.NewRaceEvent(2021, "tour-de-france/2021/", "2.UWT"), 2023)

			Convey("Then year decay and the GC bonus combine", func() {
				So(err, ShouldBeNil)
				So(w, ShouldAlmostEqual, math.Exp(-0.5)*2.0*1.25, 1e-12)
			})
		})

		Convey("When weighting a .Pro stage", func() {
			w, err := r.ComputeWeight(model.NewRaceEvent(2023, "tour-of-norway/2023/stage-2", "2.Pro"), 2023)

			Convey("Then the stage penalty applies", func() {
				So(err, ShouldBeNil)
				So(w, ShouldAlmostEqual, 1.5*0.8, 1e-12)
			})
		})

		Convey("When weighting the same event twice", func() {
			e := model.NewRaceEvent(2020, "x/2020/stage-1", "2.1")
			a, _ := r.ComputeWeight(e, 2023)
			b, _ := r.ComputeWeight(e, 2023)

			Convey("Then the result is identical", func() {
				So(a, ShouldEqual, b)
			})
		})

		Convey("When the class is unmapped", func() {
			_, err := r.ComputeWeight(model.NewRaceEvent(2023, "x/2023/", "1.HC"), 2023)

			Convey("Then it fails with UnknownClassError", func() {
				So(reweight.IsUnknownClass(err), ShouldBeTrue)
				So(errors.Is(err, model.ErrUnknownClass), ShouldBeTrue)
			})
		})

		Convey("Then the maximum weight is 2.5", func() {
			So(r.MaxWeight(), ShouldEqual, 2.5)
			lo, hi := r.ScaledRange(0, 5.25)
			So(lo, ShouldEqual, 0)
			So(hi, ShouldEqual, 13.125)
		})
	})

	Convey("Given a reweighter without the Class2 weight", t, func() {
		weights := reweight.DefaultClassWeights()
		delete(weights, model.Class2)
		r := reweight.New(reweight.WithClassWeights(weights), reweight.WithDecay(0))

		Convey("Then Class2 events are unknown", func() {
			_, err := r.ComputeWeight(model.NewRaceEvent(2020, "x/2020/", "1.2"), 2023)
			So(reweight.IsUnknownClass(err), ShouldBeTrue)
		})

		Convey("Then zero decay ignores the year", func() {
			w, err := r.ComputeWeight(model.NewRaceEvent(2000, "x/2000/", "1.1"), 2023)
			So(err, ShouldBeNil)
			So(w, ShouldEqual, 0.75)
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given normalized rows", t, func() {
		e := model.NewRaceEvent(2023, "x/2023/", "1.Pro")
		rows := []model.ScoreRow{{Event: e, Riders: []string{"A", "B"}, Values: []float64{5, 2}}}

		out, err := reweight.New().Apply(rows, 2023)

		Convey("Then every score is pre-scaled by the event weight", func() {
			So(err, ShouldBeNil)
			So(out[0].Values, ShouldResemble, []float64{7.5, 3})
			So(rows[0].Values, ShouldResemble, []float64{5, 2})
		})
	})

	Convey("Given a row newer than the reference year", t, func() {
		rows := []model.ScoreRow{{Event: model.NewRaceEvent(2024, "x/2024/", "2.UWT"), Riders: []string{"A"}, Values: []float64{5}}}

		Convey("Then applying with decay fails", func() {
			_, err := reweight.New().Apply(rows, 2023)
			So(errors.Is(err, reweight.ErrFutureEvent), ShouldBeTrue)
		})

		Convey("Then without decay the weight stays within the widened range", func() {
			r := reweight.New(reweight.WithDecay(0))
			out, err := r.Apply(rows, 2023)
			So(err, ShouldBeNil)
			_, hi := r.ScaledRange(0, 5.25)
			So(out[0].Values[0], ShouldBeLessThanOrEqualTo, hi)
		})
	})

	Convey("Given a row with a corrupt class", t, func() {
		rows := []model.ScoreRow{{Event: model.NewRaceEvent(2023, "x/", "bogus"), Riders: []string{"A"}, Values: []float64{1}}}
		_, err := reweight.New().Apply(rows, 2023)

		Convey("Then the whole application fails", func() {
			So(reweight.IsUnknownClass(err), ShouldBeTrue)
		})
	})
}
