package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pushes synthetic badge events onto a tenant's attendance queue and
// optionally seeds the student/tenant config cache, so the processor can
// be exercised without the portal or a badge reader.

type attendanceEvent struct {
	BadgeID    string `json:"badgeId"`
	TenantKey  string `json:"tenantKey"`
	OccurredAt int64  `json:"occurredAtEpochSeconds"`
}

type studentRecord struct {
	BadgeID         string `json:"badgeId"`
	Name            string `json:"name"`
	StandardName    string `json:"standardName"`
	GuardianName    string `json:"guardianName"`
	GuardianContact string `json:"guardianContact"`
}

type tenantConfig struct {
	Name          string `json:"name"`
	CheckinStart  string `json:"checkinStart"`
	CheckinEnd    string `json:"checkinEnd"`
	CheckoutStart string `json:"checkoutStart"`
	CheckoutEnd   string `json:"checkoutEnd"`
	BufferMinutes int    `json:"bufferMinutes"`
}

var (
	redisURL  = flag.String("redis", "localhost:6379", "Redis URL (host:port)")
	redisPass = flag.String("password", "", "Redis password")
	tenantID  = flag.String("tenant", "", "Tenant id (required)")
	tenantKey = flag.String("tenant-key", "", "Tenant config key (defaults to tenant id)")
	numEvents = flag.Int("events", 20, "Number of badge events to push")
	spread    = flag.Duration("spread", 10*time.Minute, "Spread of event timestamps around now")
	dupRate   = flag.Float64("dup-rate", 0.2, "Fraction of events that reuse an earlier badge id")
	seed      = flag.Bool("seed", false, "Seed student records and tenant config for the generated badges")
	phone     = flag.String("phone", "15550000000", "Guardian contact used for seeded students")
)

func main() {
	flag.Parse()

	if *tenantID == "" {
		fmt.Println("Error: --tenant flag is required")
		flag.Usage()
		os.Exit(1)
	}
	key := *tenantKey
	if key == "" {
		key = *tenantID
	}

	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{
		Addr:     *redisURL,
		Password: *redisPass,
		DB:       0,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Printf("Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Connected to Redis at %s\n", *redisURL)

	if *seed {
		seedConfig(ctx, rdb, key)
	}

	queueKey := fmt.Sprintf("wagate:%s:attendance", *tenantID)
	pipe := rdb.Pipeline()

	pushed := 0
	for i := 0; i < *numEvents; i++ {
		badge := fmt.Sprintf("BADGE-%04d", i+1)
		if i > 0 && rand.Float64() < *dupRate {
			badge = fmt.Sprintf("BADGE-%04d", rand.Intn(i)+1)
		}

		offset := time.Duration(rand.Int63n(int64(*spread))) - *spread/2
		ev := attendanceEvent{
			BadgeID:    badge,
			TenantKey:  key,
			OccurredAt: time.Now().Add(offset).Unix(),
		}

		raw, _ := json.Marshal(ev)
		pipe.RPush(ctx, queueKey, string(raw))
		pushed++
	}

	if _, err := pipe.Exec(ctx); err != nil {
		fmt.Printf("❌ Failed to push events: %v\n", err)
		os.Exit(1)
	}

	length, _ := rdb.LLen(ctx, queueKey).Result()
	fmt.Printf("✅ Pushed %d events for tenant %s (key %s)\n", pushed, *tenantID, key)
	fmt.Printf("📊 Queue length: %d\n", length)
}

func seedConfig(ctx context.Context, rdb *redis.Client, key string) {
	now := time.Now()
	cfg := tenantConfig{
		Name:          "Demo School",
		CheckinStart:  now.Add(-time.Hour).Format("15:04:05"),
		CheckinEnd:    now.Add(time.Hour).Format("15:04:05"),
		CheckoutStart: "23:58:00",
		CheckoutEnd:   "23:59:59",
		BufferMinutes: 5,
	}
	raw, _ := json.Marshal(cfg)
	rdb.Set(ctx, fmt.Sprintf("wagate:tenant:%s", key), raw, 0)

	pipe := rdb.Pipeline()
	for i := 0; i < *numEvents; i++ {
		badge := fmt.Sprintf("BADGE-%04d", i+1)
		student := studentRecord{
			BadgeID:         badge,
			Name:            fmt.Sprintf("Demo Student %d", i+1),
			StandardName:    fmt.Sprintf("Grade %d", i%10+1),
			GuardianName:    fmt.Sprintf("Demo Guardian %d", i+1),
			GuardianContact: *phone,
		}
		rawStudent, _ := json.Marshal(student)
		pipe.Set(ctx, fmt.Sprintf("wagate:student:%s", badge), rawStudent, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		fmt.Printf("❌ Failed to seed config: %v\n", err)
		return
	}

	fmt.Printf("✅ Seeded %d student records and tenant config %q\n", *numEvents, key)
}
