package main

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/pfrederiksen/losca-meetings/internal/calendar"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

func main() {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading time zone: %v\n", err)
		os.Exit(1)
	}

	// Build a sample meeting the way the normalizer would
	n, err := meeting.NewNormalizer("losca_City_Council")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating normalizer: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	start := now.In(la).AddDate(0, 0, 7).Truncate(time.Hour)
	m, err := n.Normalize(meeting.Candidate{
		Title:          "City Council Meeting",
		Description:    "Sample meeting for calendar import testing",
		Classification: meeting.CityCouncil,
		Start:          meeting.At(start),
		Location: &meeting.Location{
			Name:    "John Ferraro Council Chamber",
			Address: "200 N Spring St, Los Angeles, CA 90012",
		},
		Links:  []meeting.Link{{Title: "Agenda", Href: "https://lacity.primegov.com/public/portal"}},
		Source: "https://clerk.lacity.gov/calendar",
	}, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error normalizing meeting: %v\n", err)
		os.Exit(1)
	}

	// Generate .ics file
	icsContent := calendar.GenerateICS(m, now)

	// Write to file (owner read/write only)
	filename := "test-meeting.ics"
	if err := os.WriteFile(filename, []byte(icsContent), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated calendar file: %s\n\n", filename)
	fmt.Println("Test it by:")
	fmt.Println("1. Open the .ics file with your calendar app (double-click)")
	fmt.Println("2. Or import it into Google Calendar, Apple Calendar, or Outlook")
	fmt.Println("\nFile contents preview:")
	fmt.Println("---")
	fmt.Println(icsContent)
}
