package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/andreyvit/kvrel"
)

func run(db *kvrel.DB, args *arguments, cmd string, params []string) error {
	switch cmd {
	case "databases":
		names, err := db.ShowDatabases()
		if err != nil {
			return err
		}
		printLines(names)
	case "tables":
		names, err := db.ShowTables()
		if err != nil {
			return err
		}
		printLines(names)
	case "dump":
		s, err := db.Dump(kvrel.DumpAll)
		if err != nil {
			return err
		}
		fmt.Print(s)
	case "stats":
		if len(params) != 1 {
			return fmt.Errorf("usage: stats <table>")
		}
		s, err := db.Stats(params[0])
		if err != nil {
			return err
		}
		fmt.Printf("rows = %d\nfields = %d\nkeys = %d\ndata_size = %d\nnext_id = %d\n", s.Rows, s.Fields, s.Keys, s.DataSize, s.NextID)
	case "select":
		if len(params) < 1 || len(params) > 2 {
			return fmt.Errorf("usage: select <table> [selector]")
		}
		sel, err := selectorArg(params[1:])
		if err != nil {
			return err
		}
		res, err := db.Select(params[0], sel, kvrel.ModeArray)
		if err != nil {
			return err
		}
		for _, rec := range res.List {
			fmt.Println(rec)
		}
	case "insert":
		if len(params) < 2 {
			return fmt.Errorf("usage: insert <table> k=v...")
		}
		rec := &kvrel.Record{}
		for _, p := range params[1:] {
			k, v, ok := strings.Cut(p, "=")
			if !ok {
				return fmt.Errorf("invalid field %q, wanted name=value", p)
			}
			rec.Set(k, kvrel.Text(v))
		}
		id, err := db.Insert(params[0], rec)
		if err != nil {
			return err
		}
		fmt.Println(id)
	case "remove":
		if len(params) != 2 {
			return fmt.Errorf("usage: remove <table> <selector>")
		}
		sel, err := selectorArg(params[1:])
		if err != nil {
			return err
		}
		ids, err := db.Remove(params[0], sel)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d records\n", len(ids))
	case "drop":
		if len(params) != 1 {
			return fmt.Errorf("usage: drop <table>")
		}
		n, err := db.Drop(params[0])
		if err != nil {
			return err
		}
		fmt.Printf("dropped %d keys\n", n)
	case "load":
		return runLoad(db, args, params)
	case "export":
		return runExport(db, args, params)
	case "import":
		return runImport(db, args, params)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func selectorArg(params []string) (kvrel.Selector, error) {
	if len(params) == 0 {
		return kvrel.All(), nil
	}
	if strings.Contains(params[0], ",") {
		return kvrel.ParseSelector(strings.Split(params[0], ","))
	}
	return kvrel.ParseSelector(params[0])
}

func runLoad(db *kvrel.DB, args *arguments, params []string) error {
	if len(params) < 1 || len(params) > 2 {
		return fmt.Errorf("usage: load <model> [selector]")
	}
	if args.Models == "" {
		return fmt.Errorf("-models or KVREL_MODELS is required")
	}
	cfg, err := kvrel.LoadConfig(args.Models)
	if err != nil {
		return err
	}
	orm, err := kvrel.NewORM(db, cfg)
	if err != nil {
		return err
	}
	model, err := orm.ModelNamed(params[0])
	if err != nil {
		return err
	}
	sel, err := selectorArg(params[1:])
	if err != nil {
		return err
	}
	res, err := orm.Load(model, sel, kvrel.ModeArray)
	if err != nil {
		return err
	}
	for _, obj := range res.List {
		fmt.Println(obj)
	}
	return nil
}

func runExport(db *kvrel.DB, args *arguments, params []string) error {
	if len(params) != 1 {
		return fmt.Errorf("usage: export <file>")
	}
	enc, err := kvrel.ParseEncoding(args.Encoding)
	if err != nil {
		return err
	}
	f, err := os.Create(params[0])
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	n, err := db.Export(w, enc)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Printf("exported %d keys\n", n)
	return nil
}

func runImport(db *kvrel.DB, args *arguments, params []string) error {
	if len(params) != 1 {
		return fmt.Errorf("usage: import <file>")
	}
	enc, err := kvrel.ParseEncoding(args.Encoding)
	if err != nil {
		return err
	}
	f, err := os.Open(params[0])
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := db.Import(bufio.NewReader(f), enc)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d keys\n", n)
	return nil
}

func printLines(lines []string) {
	for _, s := range lines {
		fmt.Println(s)
	}
}
