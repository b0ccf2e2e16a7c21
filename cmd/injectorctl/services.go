package main

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/jingyiliu/injector"
)

type Logger interface {
	Log(msg string)
}

type ConsoleLogger struct {
	out io.Writer
}

func (l *ConsoleLogger) Log(msg string) {
	_, _ = fmt.Fprintln(l.out, "  [log] "+msg)
}

type ReportService interface {
	Generate(name string)
}

type reportService struct {
	log Logger
}

func NewReportService(log Logger) *reportService {
	return &reportService{log: log}
}

func (s *reportService) Generate(name string) {
	s.log.Log("generating report " + name)
}

type Plugin interface {
	Name() string
}

type namedPlugin struct {
	name string
}

func (p *namedPlugin) Name() string { return p.name }

type UnitOfWork struct {
	ID       int64
	log      Logger
	disposed atomic.Bool
}

var unitIDs atomic.Int64

func NewUnitOfWork(log Logger) *UnitOfWork {
	return &UnitOfWork{ID: unitIDs.Add(1), log: log}
}

func (u *UnitOfWork) Dispose() error {
	u.disposed.Store(true)
	u.log.Log(fmt.Sprintf("unit of work %d disposed", u.ID))
	return nil
}

type Repository[T any] struct {
	Log Logger `inject:""`
}

type Invoice struct{}

// output is the writer the demo logger prints to. It is registered as an
// instance so the logger can be autowired.
type output struct {
	io.Writer
}

func registerDemo(c *injector.Container, out io.Writer) error {
	m := injector.NewModule("demo")
	injector.ModuleRegisterInstance(m, &output{Writer: out})
	injector.ModuleRegister[Logger](m, func(o *output) *ConsoleLogger {
		return &ConsoleLogger{out: o}
	}, injector.WithLifetime(injector.Singleton))
	injector.ModuleRegister[ReportService](m, NewReportService)
	injector.ModuleRegister[*UnitOfWork](m, NewUnitOfWork, injector.WithLifetime(injector.Scoped))
	injector.ModuleRegisterGeneric[*Repository[any]](m, nil, injector.WithLifetime(injector.Scoped))

	for _, p := range []struct {
		name    string
		ranking int
	}{{"audit", 5}, {"metrics", 1}, {"export", 3}} {
		injector.ModuleRegister[Plugin](m,
			func() *namedPlugin { return &namedPlugin{name: p.name} },
			injector.WithRanking(p.ranking),
			injector.WithMetadata(injector.NewMetadata(p.name, nil)),
		)
	}

	return c.Apply(m)
}
