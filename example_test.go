package authcore_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/userstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// inbox keeps the last code per email in place of a real mailer.
type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *inbox) SendOTP(_ context.Context, msg authcore.OTPMessage) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[msg.Email] = msg.Code
	return nil
}

func (i *inbox) code(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.codes[email]
}

func exampleEngine() (*authcore.Engine, *inbox, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := authcore.DefaultConfig()
	cfg.JWT.Secret = "example-secret-0123456789abcdef"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	box := &inbox{codes: map[string]string{}}
	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(memory.New()).
		WithCodeSender(box).
		Build()
	if err != nil {
		panic(err)
	}
	return engine, box, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func ExampleNew() {
	engine, _, done := exampleEngine()
	defer done()

	fmt.Println(engine != nil)
	// Output: true
}

func ExampleEngine_Register() {
	engine, box, done := exampleEngine()
	defer done()
	ctx := context.Background()

	pending, err := engine.Register(ctx, authcore.RegisterRequest{
		Email:       "alice@example.com",
		Password:    "correct-horse-battery",
		DisplayName: "Alice",
	})
	if err != nil {
		fmt.Println("register:", err)
		return
	}
	fmt.Println("pending:", pending.Pending)

	profile, err := engine.VerifyRegistration(ctx, "alice@example.com", box.code("alice@example.com"))
	if err != nil {
		fmt.Println("verify:", err)
		return
	}
	fmt.Println("status:", profile.Status)
	// Output:
	// pending: true
	// status: ACTIVE
}

func ExampleEngine_Login() {
	engine, box, done := exampleEngine()
	defer done()
	ctx := context.Background()

	_, _ = engine.Register(ctx, authcore.RegisterRequest{
		Email:       "bob@example.com",
		Password:    "correct-horse-battery",
		DisplayName: "Bob",
	})
	_, _ = engine.VerifyRegistration(ctx, "bob@example.com", box.code("bob@example.com"))

	result, err := engine.Login(ctx, "bob@example.com", "correct-horse-battery")
	if err != nil {
		fmt.Println("login:", err)
		return
	}
	claims, err := engine.ValidateAccess(ctx, result.AccessToken)
	if err != nil {
		fmt.Println("validate:", err)
		return
	}
	fmt.Println(claims.Email)

	_, err = engine.Login(ctx, "bob@example.com", "wrong-password-123")
	info := authcore.Describe(err)
	fmt.Println(info.Code, info.Symbol)
	// Output:
	// bob@example.com
	// 2005 INVALID_CREDENTIALS
}

func ExampleDescribe() {
	info := authcore.Describe(authcore.ErrEmailTaken)
	fmt.Println(info.Code, info.HTTPStatus)
	// Output: 2001 409
}
