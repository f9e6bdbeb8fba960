package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	st "github.com/trendscout/trendscout/internal/store"
	"github.com/trendscout/trendscout/internal/store/model"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		db, err := gorm.Open(
			sqlite.Open(filepath.Join(GinkgoT().TempDir(), "test.db")),
			&gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true},
		)
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store.Seed()).To(Succeed())
	})

	AfterAll(func() {
		store.Close()
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM bars")
		gormDB.Exec("DELETE FROM sweep_results")
	})

	Context("bars", func() {
		It("round-trips a bar series", func() {
			bars := []model.Bar{
				{Symbol: "AAA", Timestamp: day(0), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
				{Symbol: "AAA", Timestamp: day(1), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 120},
			}
			Expect(store.Bar().Write(context.TODO(), bars)).To(Succeed())

			got, err := store.Bar().Read(context.TODO(), "AAA", day(0), day(1))
			Expect(err).To(BeNil())
			Expect(got).To(HaveLen(2))
			Expect(got[0].Timestamp.Before(got[1].Timestamp)).To(BeTrue())
			Expect(got[1].Close).To(Equal(2.0))
		})

		It("returns not found for an uncached symbol", func() {
			_, err := store.Bar().Read(context.TODO(), "MISSING", day(0), day(1))
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		It("overwrites bars on conflict", func() {
			first := []model.Bar{{Symbol: "BBB", Timestamp: day(0), Close: 1}}
			Expect(store.Bar().Write(context.TODO(), first)).To(Succeed())

			second := []model.Bar{{Symbol: "BBB", Timestamp: day(0), Close: 9}}
			Expect(store.Bar().Write(context.TODO(), second)).To(Succeed())

			got, err := store.Bar().Read(context.TODO(), "BBB", day(0), day(0))
			Expect(err).To(BeNil())
			Expect(got).To(HaveLen(1))
			Expect(got[0].Close).To(Equal(9.0))
		})

		It("reports range coverage", func() {
			bars := []model.Bar{
				{Symbol: "CCC", Timestamp: day(0), Close: 1},
				{Symbol: "CCC", Timestamp: day(10), Close: 2},
			}
			Expect(store.Bar().Write(context.TODO(), bars)).To(Succeed())

			covered, err := store.Bar().Has(context.TODO(), "CCC", day(2), day(8))
			Expect(err).To(BeNil())
			Expect(covered).To(BeTrue())

			covered, err = store.Bar().Has(context.TODO(), "CCC", day(2), day(20))
			Expect(err).To(BeNil())
			Expect(covered).To(BeFalse())

			covered, err = store.Bar().Has(context.TODO(), "ZZZ", day(0), day(1))
			Expect(err).To(BeNil())
			Expect(covered).To(BeFalse())
		})

		It("lists cached symbols sorted", func() {
			bars := []model.Bar{
				{Symbol: "BBB", Timestamp: day(0), Close: 1},
				{Symbol: "AAA", Timestamp: day(0), Close: 1},
				{Symbol: "AAA", Timestamp: day(1), Close: 2},
			}
			Expect(store.Bar().Write(context.TODO(), bars)).To(Succeed())

			symbols, err := store.Bar().CachedSymbols(context.TODO())
			Expect(err).To(BeNil())
			Expect(symbols).To(Equal([]string{"AAA", "BBB"}))
		})
	})

	Context("sweep results", func() {
		It("saves and reads back by session", func() {
			results := []model.SweepResult{
				{SessionID: "s1", ConfigID: "donchian_10_5", Symbol: "AAA", Sharpe: 1.2, Trades: 8},
				{SessionID: "s1", ConfigID: "donchian_20_10", Symbol: "AAA", Sharpe: 0.7, Trades: 5},
				{SessionID: "s2", ConfigID: "donchian_10_5", Symbol: "BBB", Sharpe: 2.0, Trades: 3},
			}
			Expect(store.SweepResult().Save(context.TODO(), results)).To(Succeed())

			got, err := store.SweepResult().BySession(context.TODO(), "s1")
			Expect(err).To(BeNil())
			Expect(got).To(HaveLen(2))
			Expect(got[0].ConfigID).To(Equal("donchian_10_5"))
		})

		It("ranks best results by sharpe", func() {
			results := []model.SweepResult{
				{SessionID: "s3", ConfigID: "a", Sharpe: 0.5},
				{SessionID: "s3", ConfigID: "b", Sharpe: 1.5},
				{SessionID: "s3", ConfigID: "c", Sharpe: 1.0},
			}
			Expect(store.SweepResult().Save(context.TODO(), results)).To(Succeed())

			best, err := store.SweepResult().BestBySession(context.TODO(), "s3", 2)
			Expect(err).To(BeNil())
			Expect(best).To(HaveLen(2))
			Expect(best[0].ConfigID).To(Equal("b"))
			Expect(best[1].ConfigID).To(Equal("c"))
		})
	})
})
