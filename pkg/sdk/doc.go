// Package bimquery embeds the BIM query engine in Go programs.
//
// A Client holds one loaded IFC model. Elements are selected with a
// structured filter specification or, when a language model is configured,
// with a natural-language prompt.
//
//	client, _ := bimquery.New(
//	    bimquery.WithClasses("IFCWALL", "IFCDOOR", "IFCWINDOW"),
//	    bimquery.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini"),
//	)
//	_, _ = client.LoadFile(ctx, "house.ifc")
//
//	res, _ := client.Filter(ctx, bimquery.Spec{
//	    Classes: []string{"IFCWALL"},
//	    Conditions: []bimquery.Condition{
//	        {Field: "pset:Pset_WallCommon:IsExternal", Op: "equals", Value: true},
//	    },
//	})
//
//	res, _ = client.Ask(ctx, "fire rated doors on level 2", false)
//	_, _ = client.Export(ctx, os.Stdout)
package bimquery
