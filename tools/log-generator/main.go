package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/V4T54L/log-labeler/internal/domain"
	"github.com/V4T54L/log-labeler/internal/parser"
)

// payloads holds request targets per label. Every entry labels as its key with
// the default rule table and an empty referrer.
var payloads = map[domain.Label][]string{
	domain.LabelNormal: {
		"/about",
		"/products?id=42",
		"/static/app.js",
		"/img/logo.png",
	},
	domain.LabelXSS: {
		"/search?q=<script>alert(1)</script>",
		"/comment?body=%3Cimg%20src=x%20onerror=alert(1)%3E",
		"/r?to=javascript:alert(document.cookie)",
	},
	domain.LabelSQLInjection: {
		"/item?id=1%27%20OR%201=1--",
		"/item?id=1%20UNION%20SELECT%20username,password%20FROM%20users",
		"/news?id=1;%20WAITFOR%20DELAY%20'0:0:5'",
	},
	domain.LabelCommandInjection: {
		"/ping?host=127.0.0.1;cat%20/etc/hosts",
		"/run?c=cmd.exe",
		"/api?x=a&&whoami",
	},
	domain.LabelPathTraversal: {
		"/download?file=../../../../etc/passwd",
		"/view?page=..%2F..%2Fwin.ini",
		"/files/%2e%2e%2fboot.ini",
	},
}

var (
	methods    = []string{"GET", "GET", "GET", "POST", "HEAD"}
	statuses   = []int{200, 200, 301, 403, 404, 500}
	userAgents = []string{"Mozilla/5.0 (X11; Linux x86_64)", "curl/7.68.0", "sqlmap/1.7", "Acunetix-Scanner"}
)

type generator struct {
	rng         *rand.Rand
	attackRatio float64
	now         func() time.Time
}

// next returns one combined-log-format line and the label it was built for.
func (g *generator) next() (string, domain.Label) {
	label := domain.LabelNormal
	if g.rng.Float64() < g.attackRatio {
		attacks := domain.Labels()[:4]
		label = attacks[g.rng.IntN(len(attacks))]
	}

	url := pick(g.rng, payloads[label])
	if label == domain.LabelNormal && url == "/products?id=42" {
		url += "&session=" + uuid.NewString()
	}

	rec := domain.LogRecord{
		IP:        fmt.Sprintf("10.%d.%d.%d", g.rng.IntN(256), g.rng.IntN(256), 1+g.rng.IntN(254)),
		Timestamp: g.now().Format("02/Jan/2006:15:04:05 -0700"),
		Method:    pick(g.rng, methods),
		URL:       url,
		Protocol:  "HTTP/1.1",
		Status:    pick(g.rng, statuses),
		Size:      int64(g.rng.IntN(50000)),
		Referrer:  "-",
		UserAgent: pick(g.rng, userAgents),
	}
	return parser.Format(rec), label
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}

func run(ctx context.Context, w io.Writer, g *generator, n int, limiter *rate.Limiter) (map[domain.Label]int, error) {
	bw := bufio.NewWriter(w)
	counts := make(map[domain.Label]int)
	for i := 0; i < n; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return counts, err
		}
		line, label := g.next()
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return counts, err
		}
		counts[label]++
	}
	return counts, bw.Flush()
}

func main() {
	n := flag.Int("n", 10000, "Number of lines to generate")
	out := flag.String("o", "", "Output file (default stdout)")
	attackRatio := flag.Float64("attack-ratio", 0.3, "Fraction of lines carrying an attack payload")
	rps := flag.Int("rps", 0, "Lines per second limit (0 = unlimited)")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	flag.Parse()

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("Cannot create output: %v", err)
		}
		defer f.Close()
		w = f
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if *rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100
	}

	g := &generator{
		rng:         rand.New(rand.NewPCG(*seed, *seed>>1)),
		attackRatio: *attackRatio,
		now:         time.Now,
	}

	counts, err := run(context.Background(), w, g, *n, limiter)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	for _, label := range domain.Labels() {
		log.Printf("%-18s %d", label, counts[label])
	}
}
