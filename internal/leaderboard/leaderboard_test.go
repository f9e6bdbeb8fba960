package leaderboard_test

import (
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/trendscout/trendscout/internal/backtest"
	"github.com/trendscout/trendscout/internal/fileio"
	"github.com/trendscout/trendscout/internal/leaderboard"
)

func TestLeaderboard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Leaderboard Suite")
}

func entry(configID string, sharpe float64, trades int) leaderboard.Entry {
	return leaderboard.Entry{
		ConfigID:  configID,
		SessionID: "session",
		Metrics:   backtest.Metrics{Sharpe: sharpe, Trades: trades},
	}
}

var _ = Describe("leaderboard", func() {
	Context("TryInsert", func() {
		It("keeps the top 4 of 10 descending inserts in order", func() {
			board := leaderboard.New(4)
			for i := 10; i >= 1; i-- {
				board.TryInsert(entry(fmt.Sprintf("cfg_%d", i), float64(i), i))
			}

			entries := board.Entries()
			Expect(entries).To(HaveLen(4))
			for i, want := range []float64{10, 9, 8, 7} {
				Expect(entries[i].Metrics.Sharpe).To(Equal(want))
				Expect(entries[i].Rank).To(Equal(i + 1))
			}
		})

		It("rejects entries not better than the current worst", func() {
			board := leaderboard.New(2)
			Expect(board.TryInsert(entry("a", 2, 1))).To(BeTrue())
			Expect(board.TryInsert(entry("b", 1, 1))).To(BeTrue())
			Expect(board.TryInsert(entry("c", 0.5, 1))).To(BeFalse())
			Expect(board.Len()).To(Equal(2))
		})

		It("breaks exact metric ties by trade count", func() {
			board := leaderboard.New(2)
			board.TryInsert(entry("a", 2, 10))
			board.TryInsert(entry("b", 1, 5))

			// tied with the minimum but more trades, replaces it
			Expect(board.TryInsert(entry("c", 1, 9))).To(BeTrue())

			entries := board.Entries()
			Expect(entries[1].ConfigID).To(Equal("c"))
		})

		It("keeps the earlier entry on a full tie", func() {
			board := leaderboard.New(2)
			board.TryInsert(entry("a", 2, 10))
			board.TryInsert(entry("b", 1, 5))

			Expect(board.TryInsert(entry("c", 1, 5))).To(BeFalse())
			Expect(board.Entries()[1].ConfigID).To(Equal("b"))
		})

		It("replaces a known config in place when the new run is better", func() {
			board := leaderboard.New(4)
			board.TryInsert(entry("a", 1, 5))
			Expect(board.TryInsert(entry("a", 3, 5))).To(BeTrue())

			entries := board.Entries()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Metrics.Sharpe).To(Equal(3.0))
		})

		It("discards a worse run of a known config", func() {
			board := leaderboard.New(4)
			board.TryInsert(entry("a", 3, 5))
			Expect(board.TryInsert(entry("a", 1, 5))).To(BeFalse())
			Expect(board.Entries()[0].Metrics.Sharpe).To(Equal(3.0))
		})
	})

	Context("aggregation", func() {
		It("folds per-symbol metrics into cross-symbol aggregates", func() {
			agg := leaderboard.Aggregate([]backtest.Metrics{
				{Sharpe: 1.0, CAGR: 0.10, MaxDrawdown: 0.20, HitRate: 0.5, Trades: 10},
				{Sharpe: 3.0, CAGR: 0.21, MaxDrawdown: 0.10, HitRate: 0.7, Trades: 20},
			})

			Expect(agg.AvgSharpe).To(BeNumerically("~", 2.0, 1e-9))
			Expect(agg.MinSharpe).To(Equal(1.0))
			Expect(agg.MaxSharpe).To(Equal(3.0))
			Expect(agg.WorstDrawdown).To(Equal(0.20))
			Expect(agg.AvgDrawdown).To(BeNumerically("~", 0.15, 1e-9))
			Expect(agg.AvgTrades).To(Equal(15.0))
			// geometric mean of 1.10 and 1.21 is 1.1533...
			Expect(agg.GeoMeanCAGR).To(BeNumerically("~", 0.15327, 1e-4))
			Expect(agg.Symbols).To(Equal(2))
		})

		It("pins the geometric mean at total loss", func() {
			agg := leaderboard.Aggregate([]backtest.Metrics{
				{CAGR: 0.5},
				{CAGR: -1.0},
			})
			Expect(agg.GeoMeanCAGR).To(Equal(-1.0))
		})

		It("rejects unknown rank metrics", func() {
			_, err := leaderboard.ParseRankMetric("sortino")
			Expect(err).To(HaveOccurred())

			metric, err := leaderboard.ParseRankMetric("geo_mean_cagr")
			Expect(err).To(BeNil())
			Expect(metric).To(Equal(leaderboard.RankGeoMeanCAGR))
		})
	})

	Context("cross-symbol board", func() {
		It("re-ranks as per-symbol results stream in", func() {
			board := leaderboard.NewCrossSymbol(4, leaderboard.RankAvgSharpe)
			board.Observe("a", "s", backtest.Metrics{Sharpe: 1.0})
			board.Observe("b", "s", backtest.Metrics{Sharpe: 2.0})
			Expect(board.Entries()[0].ConfigID).To(Equal("b"))

			// a second strong symbol lifts config a above b
			board.Observe("a", "s", backtest.Metrics{Sharpe: 5.0})
			entries := board.Entries()
			Expect(entries[0].ConfigID).To(Equal("a"))
			Expect(entries[0].Metrics.AvgSharpe).To(Equal(3.0))
			Expect(entries[0].Rank).To(Equal(1))
		})

		It("round-trips through the persistence file", func() {
			writer := fileio.NewWriter()
			writer.SetRootdir(GinkgoT().TempDir())

			board := leaderboard.NewCrossSymbol(4, leaderboard.RankAvgSharpe)
			board.Observe("a", "s", backtest.Metrics{Sharpe: 1.5, Trades: 7})
			board.Observe("b", "s", backtest.Metrics{Sharpe: 0.5, Trades: 3})
			Expect(board.Save(writer, "leaderboard.json")).To(Succeed())

			loaded, err := leaderboard.Load(writer, "leaderboard.json", 4, leaderboard.RankAvgSharpe)
			Expect(err).To(BeNil())
			Expect(loaded.Entries()).To(Equal(board.Entries()))
		})

		It("treats a missing file as an empty board", func() {
			writer := fileio.NewWriter()
			writer.SetRootdir(GinkgoT().TempDir())

			board, err := leaderboard.Load(writer, "absent.json", 4, leaderboard.RankAvgSharpe)
			Expect(err).To(BeNil())
			Expect(board.Entries()).To(BeEmpty())
		})

		It("fails loudly on malformed JSON", func() {
			writer := fileio.NewWriter()
			writer.SetRootdir(GinkgoT().TempDir())
			Expect(writer.WriteFile("broken.json", []byte("{not json"))).To(Succeed())

			_, err := leaderboard.Load(writer, "broken.json", 4, leaderboard.RankAvgSharpe)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("diverse selection", func() {
		featureOf := func(e leaderboard.Entry) []float64 {
			// encode the config's region in the session field for the test
			switch e.SessionID {
			case "low":
				return []float64{0.1, 0.1}
			case "mid":
				return []float64{0.5, 0.5}
			default:
				return []float64{0.9, 0.9}
			}
		}
		regionEntry := func(id, region string, sharpe float64) leaderboard.Entry {
			return leaderboard.Entry{ConfigID: id, SessionID: region, Metrics: backtest.Metrics{Sharpe: sharpe}}
		}

		It("spans distinct regions instead of near-duplicates", func() {
			entries := []leaderboard.Entry{
				regionEntry("a1", "low", 10),
				regionEntry("a2", "low", 9.9),
				regionEntry("a3", "low", 9.8),
				regionEntry("b1", "mid", 5),
				regionEntry("c1", "high", 4),
				regionEntry("a4", "low", 3),
			}

			cfg := leaderboard.DiversityConfig{Clusters: 3, MaxIterations: 10, MinDistance: 0.05}
			selected := leaderboard.SelectDiverse(entries, featureOf, 3, cfg)
			Expect(selected).To(HaveLen(3))

			regions := map[string]bool{}
			for _, e := range selected {
				regions[e.SessionID] = true
			}
			Expect(regions).To(HaveLen(3))
			Expect(selected[0].ConfigID).To(Equal("a1"))
		})

		It("returns everything when candidates fit the request", func() {
			entries := []leaderboard.Entry{regionEntry("a", "low", 1)}
			selected := leaderboard.SelectDiverse(entries, featureOf, 4, leaderboard.DefaultDiversityConfig())
			Expect(selected).To(Equal(entries))
		})
	})
})
