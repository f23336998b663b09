package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/migrations"
	"github.com/frahmantamala/asubt-console/internal/session"
	sessionPostgres "github.com/frahmantamala/asubt-console/internal/session/postgres"
	"github.com/frahmantamala/asubt-console/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestSessionPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Session Postgres Suite")
}

var _ = Describe("Slot Repository", func() {
	var (
		gdb   *gorm.DB
		sqlDB *sql.DB
		repo  session.SlotRepository
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		// SQLite in-memory database; migrations are applied by Open
		gdb, sqlDB, err = sessionPostgres.Open(ctx, internal.SessionConfig{Driver: "sqlite", Source: ":memory:"}, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		repo = sessionPostgres.NewSlotRepository(gdb)
	})

	AfterEach(func() {
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("migrates the schema to the latest version", func() {
		version, err := migrations.Version(ctx, sqlDB, "sqlite")
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(int64(1)))
	})

	It("returns only the slots that exist", func() {
		Expect(repo.Save(ctx, map[string]string{session.TokenSlot: "t1"})).To(Succeed())

		slots, err := repo.Load(ctx, session.TokenSlot, session.UserSlot)
		Expect(err).NotTo(HaveOccurred())
		Expect(slots).To(Equal(map[string]string{session.TokenSlot: "t1"}))
	})

	It("overwrites existing slots", func() {
		Expect(repo.Save(ctx, map[string]string{session.TokenSlot: "t1", session.UserSlot: "u1"})).To(Succeed())
		Expect(repo.Save(ctx, map[string]string{session.TokenSlot: "t2", session.UserSlot: "u2"})).To(Succeed())

		slots, err := repo.Load(ctx, session.TokenSlot, session.UserSlot)
		Expect(err).NotTo(HaveOccurred())
		Expect(slots[session.TokenSlot]).To(Equal("t2"))
		Expect(slots[session.UserSlot]).To(Equal("u2"))

		var count int64
		Expect(gdb.Table("session_slots").Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(2)))
	})

	It("stamps updated_at", func() {
		before := time.Now().UTC().Add(-time.Minute)
		Expect(repo.Save(ctx, map[string]string{session.TokenSlot: "t1"})).To(Succeed())

		var updated time.Time
		Expect(gdb.Table("session_slots").Select("updated_at").Where("slot_key = ?", session.TokenSlot).Scan(&updated).Error).To(Succeed())
		Expect(updated).To(BeTemporally(">", before))
	})

	It("deletes slots", func() {
		Expect(repo.Save(ctx, map[string]string{session.TokenSlot: "t1", session.UserSlot: "u1", "other": "x"})).To(Succeed())
		Expect(repo.Delete(ctx, session.TokenSlot, session.UserSlot)).To(Succeed())

		slots, err := repo.Load(ctx, session.TokenSlot, session.UserSlot, "other")
		Expect(err).NotTo(HaveOccurred())
		Expect(slots).To(Equal(map[string]string{"other": "x"}))
	})

	It("backs a session store across a simulated reload", func() {
		store := session.NewStore(repo, logger.Discard())
		Expect(store.Set(ctx, session.Session{
			Token:    "t1",
			Identity: session.Identity{ID: 1, Email: "a@b.com", FullName: "A B", Role: session.RoleAdmin},
		})).To(Succeed())

		reloaded := session.NewStore(sessionPostgres.NewSlotRepository(gdb), logger.Discard())
		Expect(reloaded.Restore(ctx)).To(Succeed())
		Expect(reloaded.Current()).To(Equal(store.Current()))
		Expect(reloaded.Current().IsAdmin()).To(BeTrue())
	})
})
