// Command seed_demo creates a demo database with public domain books, study
// rooms, a librarian, a few students and some lending history.
// Usage: go run ./cmd/seed_demo [-db path/to/demo.db] [-media path/to/media]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/campuslib/internal/auth"
	"github.com/mrlokans/campuslib/internal/config"
	"github.com/mrlokans/campuslib/internal/entities"
	"github.com/mrlokans/campuslib/internal/entrypoint"
	"github.com/mrlokans/campuslib/internal/resources"
)

const (
	defaultDemoDatabasePath = "./demo/demo.db"
	defaultDemoMediaDir     = "./demo/media"

	// Every demo account shares this password
	demoPassword = "campus-demo"
)

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	mediaDir := flag.String("media", defaultDemoMediaDir, "directory for covers and resource files")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Start fresh
	for _, path := range []string{*dbPath, *dbPath + "-wal", *dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Fatalf("Failed to remove %s: %v", path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create %s: %v", filepath.Dir(*dbPath), err)
	}

	svc, err := entrypoint.NewServices(&config.Config{
		Database: config.Database{Driver: config.DatabaseDriverSQLite, Path: *dbPath},
		Media:    config.Media{Dir: *mediaDir},
		Lending:  config.Lending{LoanDays: config.DefaultLoanDays, FinePerDay: config.DefaultFinePerDay},
		Auth:     config.Auth{BcryptCost: bcrypt.DefaultCost},
	})
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer svc.Close()

	ctx := context.Background()

	if _, err := svc.DB.SeedRooms(demoRooms()); err != nil {
		log.Fatalf("Failed to seed rooms: %v", err)
	}

	staff, err := svc.Auth.CreateStaff(ctx, "librarian", "librarian@campus.example", demoPassword)
	if err != nil {
		log.Fatalf("Failed to create staff account: %v", err)
	}
	students := createStudents(ctx, svc)
	books := createBooks(ctx, svc, staff.ID)
	createLending(ctx, svc, staff.ID, students, books)
	createBookings(ctx, svc, staff.ID, students)
	createResources(ctx, svc, staff.ID)

	log.Printf("Demo accounts: librarian, %s (password %q)", strings.Join(studentNames(students), ", "), demoPassword)
	log.Println("Demo database generated successfully!")
}

func demoRooms() []entities.StudyRoom {
	return []entities.StudyRoom{
		{Code: "L1-01", Name: "Carrel One", Capacity: 1, Description: "Single desk by the window"},
		{Code: "L1-02", Name: "Carrel Two", Capacity: 1, Description: "Single desk, power outlet"},
		{Code: "L2-10", Name: "Project Room", Capacity: 6, Description: "Whiteboard and wall screen"},
		{Code: "L2-11", Name: "Seminar Room", Capacity: 16, Description: "Projector and conference phone"},
	}
}

func createStudents(ctx context.Context, svc *entrypoint.Services) []*entities.User {
	regs := []auth.StudentRegistration{
		{Username: "alice", FirstName: "Alice", LastName: "Moreau", Department: entities.DepartmentCSE, RollNumber: "CSE-041", College: "Engineering"},
		{Username: "bhavin", FirstName: "Bhavin", LastName: "Shah", Department: entities.DepartmentEEE, RollNumber: "EEE-007", College: "Engineering"},
		{Username: "chidi", FirstName: "Chidi", LastName: "Okafor", Department: entities.DepartmentBCA, RollNumber: "BCA-112", College: "Computer Applications"},
	}

	var users []*entities.User
	for _, reg := range regs {
		reg.Password = demoPassword
		reg.Email = reg.Username + "@students.campus.example"
		user, err := svc.Auth.RegisterStudent(ctx, reg)
		if err != nil {
			log.Printf("Failed to register %s: %v", reg.Username, err)
			continue
		}
		users = append(users, user)
	}
	return users
}

func createBooks(ctx context.Context, svc *entrypoint.Services, staffID uint) []*entities.Book {
	catalog := []entities.Book{
		{Name: "Meditations", Author: "Marcus Aurelius", AvailableCopies: 3},
		{Name: "Letters from a Stoic", Author: "Seneca", AvailableCopies: 2},
		{Name: "On the Origin of Species", Author: "Charles Darwin", AvailableCopies: 2},
		{Name: "Pride and Prejudice", Author: "Jane Austen", AvailableCopies: 4},
		{Name: "War and Peace", Author: "Leo Tolstoy", AvailableCopies: 1},
		{Name: "Crime and Punishment", Author: "Fyodor Dostoevsky", AvailableCopies: 2},
		{Name: "The Republic", Author: "Plato", AvailableCopies: 2},
		{Name: "The Art of War", Author: "Sun Tzu", AvailableCopies: 1},
		{Name: "Frankenstein", Author: "Mary Shelley", AvailableCopies: 3},
		{Name: "The Picture of Dorian Gray", Author: "Oscar Wilde", AvailableCopies: 0},
	}

	var books []*entities.Book
	for i := range catalog {
		book := catalog[i]
		book.ExternalID = fmt.Sprintf("PD-%04d", i+1)
		if err := svc.Reports.AddBook(ctx, staffID, &book); err != nil {
			log.Printf("Failed to add %s: %v", book.Name, err)
			continue
		}
		log.Printf("Saved: %s by %s (%d copies)", book.Name, book.Author, book.AvailableCopies)
		books = append(books, &book)
	}
	return books
}

// createLending leaves one loan overdue, one returned and one request pending.
func createLending(ctx context.Context, svc *entrypoint.Services, staffID uint, students []*entities.User, books []*entities.Book) {
	if len(students) < 3 || len(books) < 4 {
		return
	}

	accept := func(student *entities.User, book *entities.Book, at time.Time) *entities.Loan {
		req, err := svc.Lending.SubmitRequest(ctx, student.ID, book.ID)
		if err != nil {
			log.Printf("Failed to request %s for %s: %v", book.Name, student.Username, err)
			return nil
		}
		// Backdate acceptance so due dates land in the past
		loan, err := svc.Lending.WithClock(func() time.Time { return at }).AcceptRequest(ctx, staffID, req.ID)
		svc.Lending.WithClock(time.Now)
		if err != nil {
			log.Printf("Failed to accept %s for %s: %v", book.Name, student.Username, err)
			return nil
		}
		return loan
	}

	now := time.Now()
	accept(students[0], books[0], now.AddDate(0, 0, -12))
	accept(students[0], books[3], now.AddDate(0, 0, -1))
	if returned := accept(students[1], books[1], now.AddDate(0, 0, -20)); returned != nil {
		if _, err := svc.Lending.ReturnBook(ctx, staffID, returned.ID); err != nil {
			log.Printf("Failed to return loan %d: %v", returned.ID, err)
		}
	}
	if _, err := svc.Lending.SubmitRequest(ctx, students[2].ID, books[2].ID); err != nil {
		log.Printf("Failed to create pending request: %v", err)
	}

	if updated, err := svc.Lending.RefreshFines(ctx); err == nil {
		log.Printf("Refreshed fines on %d loans", updated)
	}
}

func createBookings(ctx context.Context, svc *entrypoint.Services, staffID uint, students []*entities.User) {
	rooms, err := svc.Bookings.ListRooms(ctx)
	if err != nil || len(rooms) == 0 || len(students) == 0 {
		return
	}

	tomorrow := time.Now().AddDate(0, 0, 1).Format(entities.DateLayout)
	for i, student := range students {
		room := rooms[i%len(rooms)]
		booking, err := svc.Bookings.BookRoom(ctx, student.ID, room.ID, tomorrow, "Demo booking")
		if err != nil {
			log.Printf("Failed to book %s for %s: %v", room.Code, student.Username, err)
			continue
		}
		if i == 0 {
			if _, err := svc.Bookings.DecideBooking(ctx, staffID, booking.ID, "approve"); err != nil {
				log.Printf("Failed to approve booking %d: %v", booking.ID, err)
			}
		}
	}
}

func createResources(ctx context.Context, svc *entrypoint.Services, staffID uint) {
	items := []resources.UploadInput{
		{Name: "The Federalist Papers", Author: "Hamilton, Madison, Jay", Type: entities.ResourceTypeBook, Description: "Eighty-five essays on the Constitution"},
		{Name: "Popular Science Monthly, Vol. 1", Author: "Various", Type: entities.ResourceTypeMagazine},
		{Name: "Philosophical Transactions, 1665", Author: "Royal Society", Type: entities.ResourceTypeJournal},
		{Name: "Experiments on Plant Hybridization", Author: "Gregor Mendel", Type: entities.ResourceTypeResearch},
	}

	for i, item := range items {
		content := fmt.Sprintf("%s\n%s\n\nPublic domain text placeholder.\n", item.Name, item.Author)
		file := resources.File{
			Name:    fmt.Sprintf("resource-%d.txt", i+1),
			Content: strings.NewReader(content),
		}
		if _, err := svc.Resources.Upload(ctx, staffID, item, file, nil); err != nil {
			log.Printf("Failed to upload %s: %v", item.Name, err)
		}
	}
}

func studentNames(students []*entities.User) []string {
	names := make([]string, 0, len(students))
	for _, s := range students {
		names = append(names, s.Username)
	}
	return names
}
