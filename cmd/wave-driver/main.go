package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/trivia-wave/internal/domain"
	"github.com/trivia-wave/internal/kafka"
)

func main() {
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "wave-commands", "Kafka topic")
	cmdType := flag.String("cmd", "", "Command: create_wave, add_question, transition, resolve, empty_history, grant_boosts, drop_boost, assign_lobby, script")
	channelID := flag.String("channel", "", "Channel ID")
	waveID := flag.Int64("wave", 0, "Wave ID")
	status := flag.String("status", "", "Target status for transition")
	questions := flag.Int("questions", 5, "Questions amount for create_wave")
	reason := flag.String("reason", "manual", "Trigger reason for create_wave")
	startIn := flag.Duration("start-in", 30*time.Second, "Delay until the wave starts")
	showResolveIn := flag.Duration("show-resolve-in", 5*time.Second, "Delay until results are shown")
	userID := flag.String("user", "", "User ID for grant_boosts and drop_boost")
	lobbyID := flag.String("lobby", "", "Lobby ID for assign_lobby (generated when empty)")
	users := flag.String("users", "", "User IDs for assign_lobby (comma-separated)")
	boosts := flag.String("boosts", "", "Boost amounts for grant_boosts, e.g. Bomb=2,MegaStar=1")
	file := flag.String("file", "", "JSON file: a question for add_question or a command list for script")
	interval := flag.Duration("interval", 10*time.Second, "Pause between script commands")
	flag.Parse()

	var commands []kafka.Command
	switch kafka.CommandType(*cmdType) {
	case kafka.CommandCreateWave:
		commands = append(commands, kafka.Command{
			Type:      kafka.CommandCreateWave,
			ChannelID: *channelID,
			Wave: &domain.CreateWaveRequest{
				ChannelID:          *channelID,
				Reason:             *reason,
				QuestionsAmount:    *questions,
				StartAt:            time.Now().Add(*startIn),
				PreviousFinishedAt: time.Now(),
			},
		})

	case kafka.CommandAddQuestion:
		var q domain.AddQuestionRequest
		if err := readJSON(*file, &q); err != nil {
			log.Fatalf("Failed to read question: %v", err)
		}
		if *waveID != 0 {
			q.WaveID = *waveID
		}
		commands = append(commands, kafka.Command{Type: kafka.CommandAddQuestion, ChannelID: *channelID, WaveID: q.WaveID, Question: &q})

	case kafka.CommandTransition:
		commands = append(commands, kafka.Command{
			Type:      kafka.CommandTransition,
			ChannelID: *channelID,
			WaveID:    *waveID,
			Status:    domain.WaveStatus(*status),
		})

	case kafka.CommandResolve:
		commands = append(commands, kafka.Command{
			Type:            kafka.CommandResolve,
			ChannelID:       *channelID,
			WaveID:          *waveID,
			ShowResolveInMs: showResolveIn.Milliseconds(),
		})

	case kafka.CommandEmptyHistory:
		commands = append(commands, kafka.Command{Type: kafka.CommandEmptyHistory, ChannelID: *channelID})

	case kafka.CommandGrantBoosts:
		amounts, err := parseAmounts(*boosts)
		if err != nil {
			log.Fatalf("Invalid boosts: %v", err)
		}
		commands = append(commands, kafka.Command{Type: kafka.CommandGrantBoosts, UserID: *userID, Boosts: amounts})

	case kafka.CommandDropBoost:
		commands = append(commands, kafka.Command{Type: kafka.CommandDropBoost, UserID: *userID})

	case kafka.CommandAssignLobby:
		commands = append(commands, kafka.Command{
			Type:      kafka.CommandAssignLobby,
			ChannelID: *channelID,
			WaveID:    *waveID,
			Lobby: &domain.AssignLobbyRequest{
				WaveID:  *waveID,
				LobbyID: *lobbyID,
				UserIDs: splitList(*users),
			},
		})

	case "script":
		if err := readJSON(*file, &commands); err != nil {
			log.Fatalf("Failed to read script: %v", err)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  Wave Driver")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:   %s\n", *brokers)
	fmt.Printf("  Topic:     %s\n", *topic)
	fmt.Printf("  Commands:  %d\n", len(commands))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(strings.Split(*brokers, ","), config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for i, cmd := range commands {
		if i > 0 {
			select {
			case <-sigChan:
				fmt.Println("\nInterrupted")
				return
			case <-time.After(*interval):
			}
		}

		data, err := json.Marshal(cmd)
		if err != nil {
			log.Fatalf("Failed to marshal command: %v", err)
		}

		// Keying by channel keeps a channel's commands on one partition, in order
		partition, offset, err := producer.SendMessage(&sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(cmd.ChannelID),
			Value: sarama.ByteEncoder(data),
		})
		if err != nil {
			log.Fatalf("Failed to send %s: %v", cmd.Type, err)
		}
		fmt.Printf("[%s] %-14s wave=%d partition=%d offset=%d\n",
			time.Now().Format("15:04:05"), cmd.Type, cmd.WaveID, partition, offset)
	}

	fmt.Println("✓ Done")
}

func readJSON(path string, v any) error {
	if path == "" {
		return fmt.Errorf("-file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseAmounts parses "Bomb=2,MegaStar=1"
func parseAmounts(raw string) (map[string]int, error) {
	amounts := make(map[string]int)
	for _, part := range strings.Split(raw, ",") {
		if part == "" {
			continue
		}
		id, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("expected id=amount, got %q", part)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("amount of %s: %w", id, err)
		}
		amounts[strings.TrimSpace(id)] = n
	}
	return amounts, nil
}
