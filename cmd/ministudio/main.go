package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gogpu/gg"

	"github.com/ivlev/ministudio/internal/config"
	"github.com/ivlev/ministudio/internal/session"
	"github.com/ivlev/ministudio/internal/system"
	"github.com/ivlev/ministudio/internal/video"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Использование:
  ministudio [флаги]                      живой эфир с пультом
  ministudio record [флаги] -frames N     записать N кадров без пульта
  ministudio export [-o out.mp4] [сессия] собрать MP4 из сессии (по умолчанию последней)

Флаги:
`)
	flag.PrintDefaults()
}

func main() {
	configPtr := flag.String("config", "ministudio.yaml", "Путь к файлу конфигурации")
	controlPtr := flag.String("control", "simulator", "Источник управления: simulator, mqtt, none")
	verbosePtr := flag.Bool("verbose", false, "Подробный лог")
	statsPtr := flag.Bool("stats", false, "Печатать статистику при выходе")
	previewPtr := flag.Bool("preview", true, "Окно предпросмотра (ffplay)")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	level := cfg.Level()
	if *verbosePtr {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	gg.SetLogger(logger.With("component", "gg"))

	system.InitResourceLimits()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	cmd := "run"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		err = runStudio(ctx, cfg, options{
			configPath:   *configPtr,
			settingsPath: filepath.Join(filepath.Dir(*configPtr), "settings.yaml"),
			control:      *controlPtr,
			stats:        *statsPtr,
			preview:      *previewPtr,
			log:          logger,
		})
	case "record":
		err = runRecord(ctx, cfg, args, *statsPtr, logger)
	case "export":
		err = runExport(ctx, cfg, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
}

func runExport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outPtr := fs.String("o", "", "Путь к видео (по умолчанию <сессия>.mp4)")
	fs.Parse(args)

	dir := fs.Arg(0)
	if dir == "" {
		latest, err := session.FindLatest(cfg.OutputDir)
		if err != nil {
			return fmt.Errorf("%w. Запишите сессию кнопкой Record", err)
		}
		dir = latest
		fmt.Printf("[*] Выбрана сессия: %s\n", dir)
	}

	exp, err := video.NewExport(dir, *outPtr)
	if err != nil {
		return err
	}
	if exp.Encoder != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", exp.Encoder)
	}
	fmt.Printf("[*] Кодирование %s (%.2f fps)...\n", exp.Dir, exp.FPS)
	if err := exp.Run(ctx); err != nil {
		return err
	}
	fmt.Printf("[+++] Успех! Результат: %s\n", exp.Output)
	return nil
}
