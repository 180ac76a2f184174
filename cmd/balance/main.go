/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// balance reads a roster of players and prints the rating-balanced team
// split the bot would produce, for dry-running team formation offline.
//
// Input is one player per line: "<rating> <name>". Lines starting with #
// are skipped.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/mikeb26/customslobby-bot/lobby"
)

func main() {
	in, iterations, seed := parseArgs()
	defer in.Close()

	players, err := readPlayers(in)
	if err != nil {
		log.Fatalf("%v: failed to read players: %v", os.Args[0], err)
	}
	if len(players) < 2 {
		log.Fatalf("%v: need at least 2 players, got %v", os.Args[0],
			len(players))
	}

	teamA, teamB := lobby.GreedySplit(players)
	outputSplit("Greedy split", teamA, teamB)

	if iterations > 0 {
		rng := rand.New(rand.NewSource(seed))
		teamA, teamB = lobby.ReshuffleSplit(players, teamA, teamB,
			iterations, rng)
		outputSplit(fmt.Sprintf("Reshuffled (%v iterations, seed %v)",
			iterations, seed), teamA, teamB)
	}
}

func parseArgs() (io.ReadCloser, int, int64) {
	iterations := flag.Int("reshuffle", 0,
		"also print a reshuffled split searched over this many candidates")
	seed := flag.Int64("seed", 1, "random seed for -reshuffle")
	flag.Usage = usage
	flag.Parse()

	in := io.ReadCloser(os.Stdin)
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(1)
	} else if flag.NArg() == 1 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatalf("%v: %v", os.Args[0], err)
		}
		in = f
	}

	return in, *iterations, *seed
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(),
		"Usage:\n\n%v [-reshuffle <n>] [-seed <n>] [file]\n\nRead \"<rating> <name>\" lines from file (or stdin) and print balanced teams.\n",
		os.Args[0])
}

func readPlayers(in io.Reader) ([]lobby.Participant, error) {
	var players []lobby.Participant

	scanner := bufio.NewScanner(in)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %v: expected \"<rating> <name>\"",
				lineNum)
		}
		rating, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %v: bad rating %q: %w", lineNum,
				fields[0], err)
		}
		name := strings.TrimSpace(fields[1])
		players = append(players, lobby.Participant{
			ID:       fmt.Sprintf("p%v", lineNum),
			Username: name,
			Rating:   rating,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return players, nil
}

func outputSplit(label string, teamA, teamB []lobby.Participant) {
	fmt.Printf("%v:\n", label)
	outputTeam("Team 1", teamA)
	outputTeam("Team 2", teamB)
	fmt.Printf("\n")
}

func outputTeam(name string, team []lobby.Participant) {
	fmt.Printf("  %v (avg %v):\n", name, lobby.AverageRating(team))
	for _, p := range team {
		fmt.Printf("    %v (%v)\n", p.Username, p.Rating)
	}
}
